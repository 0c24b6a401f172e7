package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeRunner struct {
	runs int
	err  error
}

func (f *fakeRunner) Run(context.Context) error {
	f.runs++
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), PubSub: fakePinger{}, NotificationConsumer: &fakeRunner{}}); err == nil {
		t.Fatal("expected redis error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), Redis: fakePinger{}, NotificationConsumer: &fakeRunner{}}); err == nil {
		t.Fatal("expected pubsub error")
	}
	if _, err := NewService(ServiceParams{Logger: testLogger(), Redis: fakePinger{}, PubSub: fakePinger{}}); err == nil {
		t.Fatal("expected consumer error")
	}
}

func TestRunStopsWhenDependencyUnavailable(t *testing.T) {
	consumer := &fakeRunner{}
	svc, err := NewService(ServiceParams{
		Logger:               testLogger(),
		Redis:                fakePinger{err: errors.New("refused")},
		PubSub:               fakePinger{},
		NotificationConsumer: consumer,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness error")
	}
	if consumer.runs != 0 {
		t.Fatal("consumer should not start")
	}
}

func TestRunPropagatesConsumerError(t *testing.T) {
	consumer := &fakeRunner{err: errors.New("subscription deleted")}
	svc, _ := NewService(ServiceParams{
		Logger:               testLogger(),
		Redis:                fakePinger{},
		PubSub:               fakePinger{},
		NotificationConsumer: consumer,
	})
	if err := svc.Run(context.Background()); err == nil || consumer.runs != 1 {
		t.Fatalf("expected consumer error after one run, got %v", err)
	}
}
