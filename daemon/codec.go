package daemon

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecSubtype is the gRPC content-subtype this package registers: with no
// .proto file to generate from, this daemon carries plain Go structs (see
// [LoginRequest] and friends) over a JSON codec instead of generated
// protobuf messages. grpc-go picks the codec registered under this
// subtype whenever a call specifies grpc.CallContentSubtype(codecSubtype).
const codecSubtype = "witflojson"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecSubtype
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
