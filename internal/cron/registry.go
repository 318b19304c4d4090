package cron

import (
	"context"
	"fmt"
	"slices"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduled jobs pick their own cron spec instead of the worker default.
type Scheduled interface {
	Schedule() string
}

// Registry holds jobs in registration order. Names double as lock keys, so
// they must be unique.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == job.Name() }) {
		return fmt.Errorf("cron job %q registered twice", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
