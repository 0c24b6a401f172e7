package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

const maxErrorLen = 1024

var errNoTx = errors.New("transaction required")

// Repository stores staged events and their publish bookkeeping.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// Pending lists unpublished rows in publish order.
func (r *Repository) Pending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := inPublishOrder(r.db.WithContext(ctx).Where("published_at IS NULL")).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ClaimPending locks up to limit unpublished rows that still have attempts
// left. On postgres, rows held by another publisher are skipped.
func (r *Repository) ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	query := tx.Where("published_at IS NULL")
	if maxAttempts > 0 {
		query = query.Where("attempt_count < ?", maxAttempts)
	}
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	err := inPublishOrder(query).Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return update(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// RecordFailure keeps err on the row and spends one attempt.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, err error) error {
	return update(tx, id, map[string]any{
		"last_error":    clipError(err.Error()),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// Retire pins attempt_count at attempts so the row is never claimed again.
func (r *Repository) Retire(tx *gorm.DB, id uuid.UUID, err error, attempts int) error {
	return update(tx, id, map[string]any{
		"last_error":    clipError(err.Error()),
		"attempt_count": attempts,
	})
}

// PurgeBefore deletes at most limit rows created before cutoff that were
// either published or retired after maxAttempts.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time, maxAttempts, limit int) (int64, error) {
	conn := r.db.WithContext(ctx)
	expired := conn.Model(&models.OutboxEvent{}).
		Select("id").
		Where("created_at < ?", cutoff).
		Where("published_at IS NOT NULL OR attempt_count >= ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit)
	res := conn.Where("id IN (?)", expired).Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// DeadLetterRepository keeps events the publisher gave up on.
type DeadLetterRepository struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

func (r *DeadLetterRepository) Insert(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errNoTx
	}
	if entry.ErrorMessage != nil {
		msg := clipError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// PurgeBefore deletes at most limit entries that failed before cutoff.
func (r *DeadLetterRepository) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	conn := r.db.WithContext(ctx)
	expired := conn.Model(&models.OutboxDLQ{}).
		Select("id").
		Where("failed_at < ?", cutoff).
		Order("failed_at ASC").
		Limit(limit)
	res := conn.Where("id IN (?)", expired).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

func inPublishOrder(q *gorm.DB) *gorm.DB {
	return q.Order("created_at ASC").Order("id ASC")
}

func update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

func clipError(message string) string {
	if len(message) <= maxErrorLen {
		return message
	}
	return message[:maxErrorLen]
}
