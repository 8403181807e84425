// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

type Policy struct {
	Initial time.Duration
	Max     time.Duration
	// Attempts bounds the number of calls. Zero retries until the context
	// is done.
	Attempts int
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it returns nil or a Permanent error, the attempts are
// spent, or ctx is done. onRetry, when set, is told about each failure that
// will be retried. The last error from fn is returned, or ctx.Err() when the
// context ended the loop first.
func Do(ctx context.Context, p Policy, fn func(context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	delay := p.Initial
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if p.Attempts > 0 && attempt >= p.Attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}

		delay *= 2
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}
	}
}
