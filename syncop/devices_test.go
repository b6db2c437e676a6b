package syncop

import "testing"

func TestDeviceRegistryRegisterLookup(t *testing.T) {
	d := NewDeviceRegistry()
	kp := newTestSignKeyPair(t)

	if _, ok := d.Lookup("device-a"); ok {
		t.Fatal("Lookup on empty registry returned ok=true")
	}

	d.Register("device-a", kp.Public)

	got, ok := d.Lookup("device-a")
	if !ok {
		t.Fatal("Lookup after Register returned ok=false")
	}

	if !got.Equal(kp.Public) {
		t.Fatal("Lookup returned a different key than registered")
	}
}
