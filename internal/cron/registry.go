package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one maintenance task of the cron worker, such as coupon expiry or
// outbox retention.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Job names are unique and double as the
// metric label.
type Registry struct {
	jobs []Job
}

// NewRegistry returns a registry holding jobs. Nil jobs are skipped.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. A blank or repeated name is rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.lookup(name) != nil {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Select keeps only the named jobs, in registration order. No names keeps
// every job; an unknown name is an error so a typo in config fails at boot.
func (r *Registry) Select(names []string) (*Registry, error) {
	wanted := map[string]bool{}
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return r, nil
	}
	for name := range wanted {
		if r.lookup(name) == nil {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
	}
	selected := &Registry{}
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			selected.jobs = append(selected.jobs, job)
		}
	}
	return selected, nil
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) lookup(name string) Job {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job
		}
	}
	return nil
}
