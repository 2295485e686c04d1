package serde

import "fmt"

var _ Codec = bytesCodec{}

type bytesCodec struct{}

func Bytes() Codec {
	return bytesCodec{}
}

func (c bytesCodec) Encode(value any) ([]byte, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("bytes codec cannot encode %T", value)
	}
	return b, nil
}

func (c bytesCodec) Decode(data []byte) (any, error) {
	return data, nil
}
