package cron

import "context"

// Job is one reconcile task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order, unique by name.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job and reports whether it was accepted. Nil jobs and
// repeated names are dropped.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if _, exists := r.byName[job.Name()]; exists {
		return false
	}
	r.byName[job.Name()] = job
	r.jobs = append(r.jobs, job)
	return true
}

func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
