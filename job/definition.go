package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/id"
)

// Definition is a typed job definition. T is the payload type and must be
// JSON-serializable.
type Definition[T any] struct {
	// Name is the job type key clients dispatch with.
	Name string

	// Handler performs the work.
	Handler func(ctx context.Context, jobID id.JobID, payload T, r Reporter) (Result, error)

	// Validate rejects malformed payloads at the dispatch boundary. Optional.
	Validate func(payload T) error
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](
	name string,
	handler func(ctx context.Context, jobID id.JobID, payload T, r Reporter) (Result, error),
	opts ...DefinitionOption[T],
) *Definition[T] {
	def := &Definition[T]{Name: name, Handler: handler}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

// DefinitionOption configures a Definition.
type DefinitionOption[T any] func(*Definition[T])

// WithValidator sets the payload schema check for a definition.
func WithValidator[T any](fn func(T) error) DefinitionOption[T] {
	return func(d *Definition[T]) { d.Validate = fn }
}

// typedWorker adapts a Definition[T] to the type-erased Worker.
type typedWorker[T any] struct {
	def *Definition[T]
}

func (w typedWorker[T]) decode(payload json.RawMessage) (T, error) {
	var t T
	if len(payload) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("%w: decode %q payload: %w", dispatch.ErrInvalidPayload, w.def.Name, err)
	}
	return t, nil
}

// Validate implements Worker.
func (w typedWorker[T]) Validate(payload json.RawMessage) error {
	t, err := w.decode(payload)
	if err != nil {
		return err
	}
	if w.def.Validate != nil {
		if err := w.def.Validate(t); err != nil {
			return fmt.Errorf("%w: %w", dispatch.ErrInvalidPayload, err)
		}
	}
	return nil
}

// Run implements Worker.
func (w typedWorker[T]) Run(ctx context.Context, jobID id.JobID, payload json.RawMessage, r Reporter) Outcome {
	t, err := w.decode(payload)
	if err != nil {
		return Failure(err)
	}
	res, err := w.def.Handler(ctx, jobID, t, r)
	if err != nil {
		return Failure(err)
	}
	return Success(res)
}
