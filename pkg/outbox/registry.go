package outbox

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/seoulmarket/marketplace-backend/pkg/enums"
	"github.com/seoulmarket/marketplace-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// DefaultDecoders registers v1 decoders for every order event.
func DefaultDecoders() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(enums.EventOrderCreated, 1, decodeAs[payloads.OrderCreatedEvent])
	r.Register(enums.EventOrderStateChanged, 1, decodeAs[payloads.OrderStateChangedEvent])
	r.Register(enums.EventOrderPaid, 1, decodeAs[payloads.OrderPaidEvent])
	r.Register(enums.EventPaymentFailed, 1, decodeAs[payloads.PaymentFailedEvent])
	r.Register(enums.EventOrderExpired, 1, decodeAs[payloads.OrderExpiredEvent])
	r.Register(enums.EventOrderOverridden, 1, decodeAs[payloads.OrderOverriddenEvent])
	return r
}

func decodeAs[T any](payload json.RawMessage) (interface{}, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}

// DecodeEnvelope unpacks a stored row payload and decodes its data section.
func (r *DecoderRegistry) DecodeEnvelope(eventType enums.OutboxEventType, raw json.RawMessage) (PayloadEnvelope, interface{}, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("decode envelope: %w", err)
	}
	data, err := r.Decode(eventType, env.Version, env.Data)
	if err != nil {
		return env, nil, err
	}
	return env, data, nil
}
