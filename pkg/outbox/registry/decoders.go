package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medok/medok-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type or version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns an envelope's data field into a typed payload pointer.
type Decoder func(data json.RawMessage) (any, error)

// DecodeInto decodes into a fresh *T.
func DecodeInto[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}

type decoderKey struct {
	event   enums.OutboxEventType
	version int
}

// DecoderRegistry maps (event type, envelope version) to a Decoder.
// Register everything before the first Decode; lookups are not locked.
type DecoderRegistry struct {
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[decoderKey]Decoder{}}
}

func (r *DecoderRegistry) Register(event enums.OutboxEventType, version int, d Decoder) {
	r.decoders[decoderKey{event, version}] = d
}

// Handles reports whether any version of event has a decoder.
func (r *DecoderRegistry) Handles(event enums.OutboxEventType) bool {
	for k := range r.decoders {
		if k.event == event {
			return true
		}
	}
	return false
}

func (r *DecoderRegistry) Decode(event enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	d, ok := r.decoders[decoderKey{event, version}]
	if !ok {
		return nil, fmt.Errorf("%w: %s v%d", ErrNoDecoder, event, version)
	}
	return d(data)
}
