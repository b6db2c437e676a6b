package syncop

import (
	"testing"
)

func TestPendingQueueEnqueueListRemove(t *testing.T) {
	dir := t.TempDir()
	q := NewPendingQueue(dir)

	vk := newTestVaultKeyForSync(t)
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	enc, err := Encrypt(op, vk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if err := q.Enqueue(enc); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	listed, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(listed) != 1 {
		t.Fatalf("List() len = %d, want 1", len(listed))
	}

	if listed[0].OpID != enc.OpID {
		t.Fatalf("listed OpID = %q, want %q", listed[0].OpID, enc.OpID)
	}

	if listed[0].ContentHash != enc.ContentHash {
		t.Fatalf("listed ContentHash = %q, want %q", listed[0].ContentHash, enc.ContentHash)
	}

	if err := q.Remove(enc.OpID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	listed, err = q.List()
	if err != nil {
		t.Fatalf("List after remove: %v", err)
	}

	if len(listed) != 0 {
		t.Fatalf("List() after remove len = %d, want 0", len(listed))
	}
}

func TestPendingQueueListEmptyDirNotExist(t *testing.T) {
	q := NewPendingQueue(t.TempDir())

	listed, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(listed) != 0 {
		t.Fatalf("List() len = %d, want 0", len(listed))
	}
}

func TestPendingQueueRemoveMissingIsNotError(t *testing.T) {
	q := NewPendingQueue(t.TempDir())

	if err := q.Remove("nonexistent"); err != nil {
		t.Fatalf("Remove of missing op: %v", err)
	}
}
