package syncop

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// Build constructs a signed SyncOperation: bumps clock, stamps, canonically
// serializes, and signs with the device's Ed25519 secret key.
func Build(clock *Clock, deviceID string, opType OpType, targetID string, payload any, signKey vaultcrypto.SignKeyPair) (SyncOperation, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return SyncOperation{}, witerrors.Wrap(witerrors.InvalidInput, "marshal sync op payload", err)
	}

	op := SyncOperation{
		OpID:      uuid.NewString(),
		Type:      opType,
		TargetID:  targetID,
		Timestamp: clock.Tick(),
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
		Payload:   rawPayload,
	}

	canonical, err := canonicalBytes(op)
	if err != nil {
		return SyncOperation{}, witerrors.Wrap(witerrors.InvalidInput, "canonicalize sync op", err)
	}

	op.Signature = vaultcrypto.Sign(signKey.Private, canonical)

	return op, nil
}

// VerifySignature checks op.Signature against its canonical bytes under
// pub. An unsigned or badly signed op must never be applied.
func VerifySignature(op SyncOperation, pub []byte) error {
	canonical, err := canonicalBytes(op)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "canonicalize sync op", err)
	}

	if !vaultcrypto.Verify(pub, canonical, op.Signature) {
		return witerrors.ErrAuthenticationFailure
	}

	return nil
}
