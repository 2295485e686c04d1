package kafka

import (
	"strconv"
	"time"
)

// Header represents a single Kafka record header
// kafka needs to support multiple headers with duplicate keys
type Header struct {
	Key   string
	Value []byte
}

// HeaderValue returns the value of the first header matching the given key
// Returns (nil, false) if no header with that key exists
func HeaderValue(headers []Header, key string) ([]byte, bool) {
	for _, h := range headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// Message is one raw record delivered by the backend. Offsets increase
// monotonically within a consumer stream but are not necessarily contiguous.
type Message struct {
	Topic     string
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []Header
	Timestamp time.Time
}

func (m Message) String() string {
	return m.Topic + "@" + strconv.FormatInt(m.Offset, 10)
}

func (m Message) Copy() Message {
	headersCopy := make([]Header, len(m.Headers))
	for i, h := range m.Headers {
		vCopy := make([]byte, len(h.Value))
		copy(vCopy, h.Value)
		headersCopy[i] = Header{Key: h.Key, Value: vCopy}
	}

	keyCopy := make([]byte, len(m.Key))
	copy(keyCopy, m.Key)

	valueCopy := make([]byte, len(m.Value))
	copy(valueCopy, m.Value)

	return Message{
		Topic:     m.Topic,
		Offset:    m.Offset,
		Key:       keyCopy,
		Value:     valueCopy,
		Headers:   headersCopy,
		Timestamp: m.Timestamp,
	}
}
