package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	maxErrorBackoff    = 10 * time.Second
	backoffJitter      = 250 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventStore interface {
	ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, err error) error
	Retire(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	Insert(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type sender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

// RelayParams wires the relay to the outbox table and Pub/Sub.
type RelayParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txRunner
	Events      eventStore
	DeadLetters deadLetterStore
	Registry    resolver
	Sender      sender
}

// Relay moves committed outbox rows onto their Pub/Sub topics. Events of one
// order share an ordering key so consumers see its lifecycle in order.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	events      eventStore
	deadLetters deadLetterStore
	registry    resolver
	sender      sender
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Events == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	case p.Sender == nil:
		return nil, errors.New("pubsub sender is required")
	}
	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		events:      p.Events,
		deadLetters: p.DeadLetters,
		registry:    p.Registry,
		sender:      p.Sender,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
		now:         time.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.poll <= 0 {
		r.poll = defaultPoll
	}
	return r, nil
}

// Run relays batches until ctx ends. A full batch with progress is followed
// immediately by the next one; an idle or failing batch waits.
func (r *Relay) Run(ctx context.Context) error {
	backoff := r.newBackoff()
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		report, err := r.relayBatch(ctx)
		wait := r.poll
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.batch_failed", err)
			wait, _ = backoff.Next()
		case report.progressed():
			backoff = r.newBackoff()
			continue
		case report.retried > 0:
			wait, _ = backoff.Next()
		default:
			backoff = r.newBackoff()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) newBackoff() retry.Backoff {
	return retry.WithJitter(backoffJitter, retry.WithCappedDuration(maxErrorBackoff, retry.NewExponential(r.poll)))
}

type batchReport struct {
	fetched      int
	published    int
	retried      int
	deadLettered int
	held         int
}

func (b batchReport) progressed() bool {
	return b.published+b.deadLettered > 0
}

func (r *Relay) relayBatch(ctx context.Context) (batchReport, error) {
	var report batchReport
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		report = batchReport{}
		events, err := r.events.ClaimPending(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		report.fetched = len(events)

		stalled := map[string]bool{}
		for _, event := range events {
			key := orderingKey(event)
			if key != "" && stalled[key] {
				report.held++
				continue
			}
			d := r.deliver(ctx, event)
			if d.verdict == verdictRetry && key != "" {
				stalled[key] = true
			}
			if err := r.settle(ctx, tx, d); err != nil {
				return err
			}
			switch d.verdict {
			case verdictPublished:
				report.published++
			case verdictRetry:
				report.retried++
			case verdictDeadLetter:
				report.deadLettered++
			}
		}
		return nil
	})
	return report, err
}

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

type delivery struct {
	event    models.OutboxEvent
	topic    string
	envelope outbox.PayloadEnvelope
	verdict  verdict
	reason   enums.OutboxDLQErrorReason
	err      error
}

func (d delivery) deadLetter(reason enums.OutboxDLQErrorReason, err error) delivery {
	d.verdict = verdictDeadLetter
	d.reason = reason
	d.err = err
	return d
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event}
	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return d.deadLetter(enums.OutboxDLQReasonNonRetryable, err)
	}
	d.topic = resolved.Descriptor.Topic
	d.envelope = resolved.Envelope

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := r.sender.Send(sendCtx, d.topic, newMessage(event, resolved.Envelope)); err != nil {
		switch {
		case permanentSendError(err):
			return d.deadLetter(enums.OutboxDLQReasonNonRetryable, err)
		case event.AttemptCount+1 >= r.maxAttempts:
			return d.deadLetter(enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
		}
		d.verdict = verdictRetry
		d.err = err
		return d
	}
	d.verdict = verdictPublished
	return d
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, d delivery) error {
	logCtx := r.logg.WithFields(ctx, d.fields())
	id := d.event.ID
	switch d.verdict {
	case verdictPublished:
		if err := r.events.MarkPublished(tx, id); err != nil {
			return fmt.Errorf("mark published %s: %w", id, err)
		}
		r.logg.Info(logCtx, "outbox.event_published")
	case verdictRetry:
		if err := r.events.RecordFailure(tx, id, d.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", id, err)
		}
		r.logg.Warn(r.logg.WithField(logCtx, "error", d.err.Error()), "outbox.publish_retry")
	case verdictDeadLetter:
		msg := d.err.Error()
		if err := r.deadLetters.Insert(tx, models.OutboxDLQ{
			EventID:       id,
			EventType:     d.event.EventType,
			AggregateType: d.event.AggregateType,
			AggregateID:   d.event.AggregateID,
			Payload:       d.event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &msg,
			AttemptCount:  d.event.AttemptCount,
			FailedAt:      r.now().UTC(),
		}); err != nil {
			return fmt.Errorf("dead-letter %s: %w", id, err)
		}
		if err := r.events.Retire(tx, id, d.err, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", id, err)
		}
		r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{
			"error":        msg,
			"error_reason": d.reason,
		}), "outbox.event_dead_lettered")
	}
	return nil
}

func (d delivery) fields() map[string]any {
	fields := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"attempt_count":  d.event.AttemptCount,
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.envelope.EventID != "" {
		fields["event_id"] = d.envelope.EventID
	}
	if d.event.AggregateType == enums.AggregateOrder {
		fields["order_id"] = d.event.AggregateID.String()
	}
	return fields
}

func newMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey(event),
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"occurred_at":    envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// orderingKey is the order id for order lifecycle events and empty otherwise.
func orderingKey(event models.OutboxEvent) string {
	if event.AggregateType != enums.AggregateOrder {
		return ""
	}
	return event.AggregateID.String()
}

// permanentSendError reports failures a resend cannot fix, such as an
// oversized or malformed message.
func permanentSendError(err error) bool {
	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return true
	}
	return status.Code(err) == codes.InvalidArgument
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
