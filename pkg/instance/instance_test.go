package instance

import "testing"

func TestIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("WORKER_ID", "worker-3")
	if got := ID("local"); got != "web.1" {
		t.Fatalf("expected web.1 got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", " ")
	if got := ID("local"); got != "local" {
		t.Fatalf("expected fallback got %q", got)
	}
}
