package federation

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the fleet hub's gRPC service exchange plain JSON messages
// instead of protobuf-compiled types. Checkpoints already have a
// self-describing JSON wire form (every DualCfcCheckpoint round-trips
// through encoding/json for file storage); reusing it as the gRPC payload
// avoids a second, protobuf-specific schema for the same data.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
