package syncop

import (
	"crypto/ed25519"
	"sync"
)

// DeviceRegistry maps a device id to the Ed25519 public key it signs
// operations with, so [VerifySignature] can be checked against the
// *producing* device rather than the local device's own key.
//
// Key exchange between devices is out of scope and treated as an external
// concern; this registry only holds whatever keys the caller has already
// obtained, however it obtained them.
type DeviceRegistry struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

// NewDeviceRegistry returns an empty registry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{keys: make(map[string]ed25519.PublicKey)}
}

// Register associates deviceID with pub, overwriting any previous key.
func (d *DeviceRegistry) Register(deviceID string, pub ed25519.PublicKey) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys[deviceID] = pub
}

// Lookup returns deviceID's registered public key, if any.
func (d *DeviceRegistry) Lookup(deviceID string) (ed25519.PublicKey, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	pub, ok := d.keys[deviceID]

	return pub, ok
}
