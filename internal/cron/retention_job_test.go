package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type scriptedPurge struct {
	results []int64
	err     error
	cutoffs []time.Time
	limits  []int
}

func (s *scriptedPurge) purge(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return 0, s.err
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	n := s.results[0]
	s.results = s.results[1:]
	return n, nil
}

func newRetentionJob(t *testing.T, params RetentionJobParams) *retentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test"})
	job, err := NewRetentionJob(params)
	if err != nil {
		t.Fatalf("NewRetentionJob: %v", err)
	}
	return job.(*retentionJob)
}

func TestRetentionJobDrainsInBatches(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	events := &scriptedPurge{results: []int64{3, 3, 1}}
	job := newRetentionJob(t, RetentionJobParams{
		Sweeps:    []Sweep{{Table: "outbox_events", Keep: 72 * time.Hour, Purge: events.purge}},
		BatchSize: 3,
	})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events.cutoffs) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(events.cutoffs))
	}
	if !events.cutoffs[0].Equal(now.Add(-72 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", events.cutoffs[0])
	}
	for _, limit := range events.limits {
		if limit != 3 {
			t.Fatalf("expected batch limit 3, got %d", limit)
		}
	}
}

func TestRetentionJobStopsAtMaxBatches(t *testing.T) {
	events := &scriptedPurge{results: []int64{2, 2, 2, 2, 2}}
	job := newRetentionJob(t, RetentionJobParams{
		Sweeps:     []Sweep{{Table: "outbox_events", Keep: time.Hour, Purge: events.purge}},
		BatchSize:  2,
		MaxBatches: 2,
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events.cutoffs) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(events.cutoffs))
	}
}

func TestRetentionJobSweepsEveryTableOnFailure(t *testing.T) {
	events := &scriptedPurge{err: errors.New("db down")}
	letters := &scriptedPurge{results: []int64{1}}
	job := newRetentionJob(t, RetentionJobParams{
		Sweeps: []Sweep{
			{Table: "outbox_events", Keep: time.Hour, Purge: events.purge},
			{Table: "outbox_dlq", Keep: 2 * time.Hour, Purge: letters.purge},
		},
	})

	err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "purge outbox_events") {
		t.Fatalf("expected outbox_events failure, got %v", err)
	}
	if len(letters.cutoffs) != 1 {
		t.Fatalf("expected dead letters swept once, got %d", len(letters.cutoffs))
	}
}

func TestRetentionJobHonorsCancellation(t *testing.T) {
	events := &scriptedPurge{results: []int64{5}}
	job := newRetentionJob(t, RetentionJobParams{
		Sweeps: []Sweep{{Table: "outbox_events", Keep: time.Hour, Purge: events.purge}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := job.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(events.cutoffs) != 0 {
		t.Fatal("expected no purge after cancellation")
	}
}

func TestNewRetentionJobValidatesSweeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	purge := (&scriptedPurge{}).purge
	cases := []RetentionJobParams{
		{Logger: nil, Sweeps: []Sweep{{Table: "t", Keep: time.Hour, Purge: purge}}},
		{Logger: logg},
		{Logger: logg, Sweeps: []Sweep{{Table: "t", Keep: 0, Purge: purge}}},
		{Logger: logg, Sweeps: []Sweep{{Table: "t", Keep: time.Hour}}},
	}
	for i, params := range cases {
		if _, err := NewRetentionJob(params); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
