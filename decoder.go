package streamtable

import (
	"github.com/hugolhafner/streamtable/kafka"
	"github.com/hugolhafner/streamtable/serde"
)

// EventDecoder turns a raw message into this topic's value type. It receives
// the already-decoded key, the whole raw message, and the application's
// default value codec as a hint.
type EventDecoder interface {
	FromMessage(key any, msg kafka.Message, defaultCodec serde.Codec) (any, error)
}

type DecoderFunc func(key any, msg kafka.Message, defaultCodec serde.Codec) (any, error)

func (f DecoderFunc) FromMessage(key any, msg kafka.Message, defaultCodec serde.Codec) (any, error) {
	return f(key, msg, defaultCodec)
}
