package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marketplace-backend/internal/analytics/types"
)

// ErrRowRejected marks a row BigQuery refused for good, such as a schema
// mismatch. Writing it again cannot succeed.
var ErrRowRejected = errors.New("analytics row rejected")

const (
	defaultAttempts   = 4
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 2 * time.Second
)

type Config struct {
	Table      string
	Attempts   uint64
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type inserter interface {
	Insert(ctx context.Context, table string, rows []cbigquery.ValueSaver) error
}

// OrderEvents streams order event rows into BigQuery. Each row uses its
// event id as the insert id so a redelivered event does not count twice.
type OrderEvents struct {
	client  inserter
	table   string
	backoff func() retry.Backoff
}

func New(client inserter, cfg Config) (*OrderEvents, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return nil, errors.New("order events table is required")
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = defaultAttempts
	}
	base := cfg.Backoff
	if base <= 0 {
		base = defaultBackoff
	}
	ceiling := cfg.MaxBackoff
	if ceiling <= 0 {
		ceiling = defaultMaxBackoff
	}
	ceiling = max(ceiling, base)
	return &OrderEvents{
		client: client,
		table:  table,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(attempts-1, retry.WithCappedDuration(ceiling, retry.NewExponential(base)))
		},
	}, nil
}

// Insert writes row, retrying transient BigQuery failures. A permanent
// failure wraps ErrRowRejected.
func (w *OrderEvents) Insert(ctx context.Context, row types.OrderEventRow) error {
	saver := &cbigquery.StructSaver{Struct: row, InsertID: row.EventID}
	err := retry.Do(ctx, w.backoff(), func(ctx context.Context) error {
		err := w.client.Insert(ctx, w.table, []cbigquery.ValueSaver{saver})
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil || transient(err):
		return fmt.Errorf("insert %s event %s: %w", w.table, row.EventID, err)
	default:
		return fmt.Errorf("%w: %s event %s: %w", ErrRowRejected, w.table, row.EventID, err)
	}
}

// transient reports whether every failure inside err may clear on retry.
func transient(err error) bool {
	var rows cbigquery.PutMultiError
	if errors.As(err, &rows) {
		if len(rows) == 0 {
			return false
		}
		for _, row := range rows {
			if !transient(row.Errors) {
				return false
			}
		}
		return true
	}
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !transient(inner) {
				return false
			}
		}
		return true
	}
	var bqErr *cbigquery.Error
	if errors.As(err, &bqErr) {
		switch bqErr.Reason {
		case "backendError", "rateLimitExceeded", "internalError", "timeout", "stopped":
			return true
		}
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// JSONColumn renders payload for a BigQuery JSON column. Empty and null
// payloads become NULL.
func JSONColumn(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("encode json column: %w", err)
		}
		raw = encoded
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cbigquery.NullJSON{}, nil
	}
	if !json.Valid(raw) {
		return cbigquery.NullJSON{}, errors.New("json column: invalid json")
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
