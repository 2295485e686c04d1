package serde

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

type protobufCodec struct {
	newMessage func() proto.Message
}

// Protobuf returns a Codec for one protobuf message type. Register it under
// an id of your choosing:
//
//	registry.Register("order", serde.Protobuf(func() proto.Message { return &pb.Order{} }))
func Protobuf(newMessage func() proto.Message) Codec {
	return protobufCodec{newMessage: newMessage}
}

func (c protobufCodec) Encode(value any) ([]byte, error) {
	m, ok := value.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf codec cannot encode %T", value)
	}
	return proto.Marshal(m)
}

func (c protobufCodec) Decode(data []byte) (any, error) {
	m := c.newMessage()
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
