package syncop

import "testing"

func TestCursorLoadMissingReturnsZeroValue(t *testing.T) {
	root := t.TempDir()
	vk := newTestVaultKeyForSync(t)

	cursor, err := LoadCursor(root, vk)
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}

	if cursor.LastTimestamp != 0 || cursor.LastOpID != "" {
		t.Fatalf("LoadCursor() = %+v, want zero value", cursor)
	}
}

func TestCursorSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	vk := newTestVaultKeyForSync(t)

	want := SyncCursor{LastTimestamp: 42, LastOpID: "op-42", SyncedCount: 7}

	if err := SaveCursor(root, vk, want); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}

	got, err := LoadCursor(root, vk)
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}

	if got.LastTimestamp != want.LastTimestamp || got.LastOpID != want.LastOpID || got.SyncedCount != want.SyncedCount {
		t.Fatalf("LoadCursor() = %+v, want %+v", got, want)
	}

	if got.UpdatedAt.IsZero() {
		t.Fatal("LoadCursor().UpdatedAt is zero, want stamped")
	}
}

func TestCursorWrongKeyFails(t *testing.T) {
	root := t.TempDir()
	vk := newTestVaultKeyForSync(t)
	other := newTestVaultKeyForSync(t)

	if err := SaveCursor(root, vk, SyncCursor{LastTimestamp: 1}); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}

	if _, err := LoadCursor(root, other); err == nil {
		t.Fatal("LoadCursor: want error under wrong key, got nil")
	}
}
