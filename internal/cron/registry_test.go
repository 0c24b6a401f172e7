package cron

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func TestRegistryKeepsRunOrder(t *testing.T) {
	coupons := &stubJob{name: "coupon-expiry"}
	retention := &stubJob{name: "outbox-retention"}
	registry := mustRegistry(t, coupons, nil, retention)

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != coupons || jobs[1] != retention {
		t.Fatalf("unexpected jobs %v", registry.Names())
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}
}

func TestRegistryRejectsBadNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "coupon-expiry"}, &stubJob{name: "coupon-expiry"}); err == nil || !strings.Contains(err.Error(), "twice") {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	if _, err := NewRegistry(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name rejection")
	}
}

func TestRegistrySelect(t *testing.T) {
	registry := mustRegistry(t, &stubJob{name: "coupon-expiry"}, &stubJob{name: "outbox-retention"})

	all, err := registry.Select(nil)
	if err != nil || !reflect.DeepEqual(all.Names(), []string{"coupon-expiry", "outbox-retention"}) {
		t.Fatalf("expected every job, got %v err=%v", all, err)
	}

	only, err := registry.Select([]string{" outbox-retention ", ""})
	if err != nil || !reflect.DeepEqual(only.Names(), []string{"outbox-retention"}) {
		t.Fatalf("unexpected selection %v err=%v", only, err)
	}

	if _, err := registry.Select([]string{"coupon-expire"}); err == nil {
		t.Fatal("expected unknown job to fail")
	}
}
