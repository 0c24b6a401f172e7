package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Decoder turns the data of one event type back into its payload struct on
// the consuming side. Versions 1 through maxVersion share the same shape.
type Decoder[T any] struct {
	eventType  enums.OutboxEventType
	maxVersion int
}

func NewDecoder[T any](eventType enums.OutboxEventType, maxVersion int) Decoder[T] {
	return Decoder[T]{eventType: eventType, maxVersion: max(maxVersion, 1)}
}

// Decode rejects versions this build cannot read and empty data. Every error
// is a NonRetryableError: redelivery carries the same bytes.
func (d Decoder[T]) Decode(version int, data json.RawMessage) (*T, error) {
	if version < 1 || version > d.maxVersion {
		return nil, NewNonRetryableError(fmt.Errorf("%s v%d not supported (max v%d)", d.eventType, version, d.maxVersion))
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("%s v%d has no data", d.eventType, version))
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s v%d: %w", d.eventType, version, err))
	}
	return out, nil
}
