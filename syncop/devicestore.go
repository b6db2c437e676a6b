package syncop

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// OwnDeviceFileName is the AEAD-encrypted file holding this replica's own
// device id and Ed25519 signing key, at rest under the vault root.
const OwnDeviceFileName = "sync/device.enc"

// TrustedDevicesFileName is the AEAD-encrypted file mapping peer device ids
// to their Ed25519 public keys.
const TrustedDevicesFileName = "sync/devices.enc"

// ownDeviceFile is the plaintext, pre-encryption shape of OwnDeviceFileName.
type ownDeviceFile struct {
	DeviceID   string `json:"device_id"`
	PrivateKey string `json:"private_key"` // hex-encoded ed25519.PrivateKey
}

// OwnDevice is the caller-facing, decoded form of ownDeviceFile.
type OwnDevice struct {
	DeviceID string
	SignKey  vaultcrypto.SignKeyPair
}

func deviceAEAD(vaultKey vaultcrypto.VaultKey) (*vaultcrypto.XChaChaAEAD, error) {
	// Reuses the sync-op key derivation: the own-device and
	// trusted-devices files are sync metadata in the same sense the
	// cursor is, so they are sealed under the same derived key rather
	// than minting a third HKDF context.
	secret, err := vaultcrypto.DeriveSyncOpKey(vaultKey)
	if err != nil {
		return nil, err
	}
	defer secret.Dispose()

	keyBytes, err := secret.Bytes()
	if err != nil {
		return nil, err
	}

	return vaultcrypto.NewXChaChaAEAD(keyBytes)
}

// LoadOrCreateOwnDevice reads this vault replica's device identity, minting
// and persisting a fresh Ed25519 keypair and a random device id on first
// use.
func LoadOrCreateOwnDevice(vaultRoot string, vaultKey vaultcrypto.VaultKey) (OwnDevice, error) {
	path := filepath.Join(vaultRoot, OwnDeviceFileName)

	aead, err := deviceAEAD(vaultKey)
	if err != nil {
		return OwnDevice{}, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return OwnDevice{}, witerrors.IoErrorFor(path, err)
		}

		return createOwnDevice(path, aead)
	}

	plaintext, err := aead.Open(raw, nil)
	if err != nil {
		return OwnDevice{}, witerrors.CorruptedIndexError(path, err)
	}

	var f ownDeviceFile
	if err := json.Unmarshal(plaintext, &f); err != nil {
		return OwnDevice{}, witerrors.Wrap(witerrors.InvalidInput, "parse own device file", err)
	}

	priv, err := hex.DecodeString(f.PrivateKey)
	if err != nil {
		return OwnDevice{}, witerrors.Wrap(witerrors.InvalidInput, "decode own device private key", err)
	}

	return OwnDevice{
		DeviceID: f.DeviceID,
		SignKey:  vaultcrypto.SignKeyPair{Private: ed25519.PrivateKey(priv), Public: ed25519.PrivateKey(priv).Public().(ed25519.PublicKey)},
	}, nil
}

func createOwnDevice(path string, aead *vaultcrypto.XChaChaAEAD) (OwnDevice, error) {
	signKey, err := vaultcrypto.GenerateSignKeyPair()
	if err != nil {
		return OwnDevice{}, witerrors.Wrap(witerrors.InvalidInput, "generate device signing key", err)
	}

	deviceID := uuid.NewString()

	f := ownDeviceFile{
		DeviceID:   deviceID,
		PrivateKey: hex.EncodeToString(signKey.Private),
	}

	plaintext, err := json.Marshal(f)
	if err != nil {
		return OwnDevice{}, witerrors.Wrap(witerrors.InvalidInput, "marshal own device file", err)
	}

	sealed, err := aead.Seal(plaintext, nil)
	if err != nil {
		return OwnDevice{}, witerrors.Wrap(witerrors.InvalidInput, "seal own device file", err)
	}

	if err := fsatomic.WriteFile(path, sealed, 0o600); err != nil {
		return OwnDevice{}, witerrors.IoErrorFor(path, err)
	}

	return OwnDevice{DeviceID: deviceID, SignKey: signKey}, nil
}

// LoadTrustedDevices reads the trusted-device registry, returning an empty
// registry if none has been saved yet.
func LoadTrustedDevices(vaultRoot string, vaultKey vaultcrypto.VaultKey) (*DeviceRegistry, error) {
	path := filepath.Join(vaultRoot, TrustedDevicesFileName)

	reg := NewDeviceRegistry()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}

		return nil, witerrors.IoErrorFor(path, err)
	}

	aead, err := deviceAEAD(vaultKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(raw, nil)
	if err != nil {
		return nil, witerrors.CorruptedIndexError(path, err)
	}

	var entries map[string]string
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "parse trusted devices file", err)
	}

	for deviceID, pubHex := range entries {
		pub, err := hex.DecodeString(pubHex)
		if err != nil {
			return nil, witerrors.Wrap(witerrors.InvalidInput, "decode trusted device public key", err)
		}

		reg.Register(deviceID, ed25519.PublicKey(pub))
	}

	return reg, nil
}

// SaveTrustedDevices persists reg's contents, overwriting any existing file.
func SaveTrustedDevices(vaultRoot string, vaultKey vaultcrypto.VaultKey, reg *DeviceRegistry) error {
	entries := make(map[string]string)

	reg.mu.RLock()
	for deviceID, pub := range reg.keys {
		entries[deviceID] = hex.EncodeToString(pub)
	}
	reg.mu.RUnlock()

	aead, err := deviceAEAD(vaultKey)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "marshal trusted devices file", err)
	}

	sealed, err := aead.Seal(plaintext, nil)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "seal trusted devices file", err)
	}

	path := filepath.Join(vaultRoot, TrustedDevicesFileName)

	if err := fsatomic.WriteFile(path, sealed, 0o600); err != nil {
		return witerrors.IoErrorFor(path, err)
	}

	return nil
}
