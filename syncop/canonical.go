package syncop

import "encoding/json"

// signingView is SyncOperation with Signature dropped, so canonical bytes
// for signing/verification never include the signature itself.
type signingView struct {
	OpID      string          `json:"op_id"`
	Type      OpType          `json:"type"`
	TargetID  string          `json:"target_id"`
	Timestamp int64           `json:"timestamp"`
	DeviceID  string          `json:"device_id"`
	CreatedAt string          `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// canonicalBytes produces the deterministic serialization signed and
// verified for op: struct field order is fixed by signingView's
// declaration, encoding/json emits no extraneous whitespace, and
// CreatedAt is formatted as RFC 3339 explicitly so the representation
// does not depend on time.Time's internal monotonic reading.
func canonicalBytes(op SyncOperation) ([]byte, error) {
	view := signingView{
		OpID:      op.OpID,
		Type:      op.Type,
		TargetID:  op.TargetID,
		Timestamp: op.Timestamp,
		DeviceID:  op.DeviceID,
		CreatedAt: op.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		Payload:   op.Payload,
	}

	return json.Marshal(view)
}
