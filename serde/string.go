package serde

import "fmt"

type stringCodec struct{}

func String() Codec {
	return stringCodec{}
}

func (c stringCodec) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	default:
		return nil, fmt.Errorf("string codec cannot encode %T", value)
	}
}

func (c stringCodec) Decode(data []byte) (any, error) {
	return string(data), nil
}
