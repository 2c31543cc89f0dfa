// Package audit persists verification records for later compliance review.
//
// A Sink failure never invalidates a verification: callers surface it as a
// warning and keep the result.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnayoung/legal-consensus/internal/output"
)

// Sink stores one verification record.
type Sink interface {
	Name() string
	Save(ctx context.Context, r *output.Result) error
}

// Multi writes to every sink, continuing past failures.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

// Save calls every sink and joins their errors.
func (m Multi) Save(ctx context.Context, r *output.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, r); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// SinkError ties a failure to the sink that produced it.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("audit sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Discard drops every record.
type Discard struct{}

func (Discard) Name() string                                { return "discard" }
func (Discard) Save(context.Context, *output.Result) error { return nil }
