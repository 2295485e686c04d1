package serde

import (
	"fmt"
	"sync"
)

// Codec converts between raw message bytes and decoded values. Codecs are
// looked up by id (e.g. "json") when a consumer is constructed.
type Codec interface {
	Encode(value any) ([]byte, error)
	Decode(data []byte) (any, error)
}

type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

func (r *Registry) Register(name string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[name] = c
}

func (r *Registry) Lookup(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codecs[name]
	return c, ok
}

func (r *Registry) Decode(name string, data []byte) (any, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}

	return c.Decode(data)
}

func (r *Registry) Encode(name string, value any) ([]byte, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", name)
	}

	return c.Encode(value)
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register("json", JSON())
	r.Register("string", String())
	r.Register("bytes", Bytes())
	return r
}()

// Default returns the registry used when an application does not supply its
// own. It comes pre-loaded with the json, string and bytes codecs.
func Default() *Registry {
	return defaultRegistry
}
