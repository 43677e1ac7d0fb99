package jobs

import (
	"context"

	"github.com/ndstyle/mindflow-backend/internal/types"
)

type Handler interface {
	Run(ctx context.Context, job *types.JobRun) error
}

type HandlerFunc func(ctx context.Context, job *types.JobRun) error

func (f HandlerFunc) Run(ctx context.Context, job *types.JobRun) error {
	return f(ctx, job)
}

type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(jobType string, h Handler) {
	r.handlers[jobType] = h
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	h, ok := r.handlers[jobType]
	return h, ok
}
