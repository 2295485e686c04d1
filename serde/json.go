package serde

import "encoding/json"

type jsonCodec struct{}

// JSON returns a Codec that uses JSON for encoding and decoding. Decoded
// values take the shapes encoding/json produces for untyped targets.
func JSON() Codec {
	return jsonCodec{}
}

func (c jsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (c jsonCodec) Decode(data []byte) (any, error) {
	var result any
	err := json.Unmarshal(data, &result)
	return result, err
}
