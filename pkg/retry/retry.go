package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrAttemptsExhausted = errors.New("retry attempts exhausted")
	ErrContextCanceled   = errors.New("context canceled during retry")
)

// Policy bounds a retried operation: how many times it runs and how long to wait in between.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one. Values below 1 mean 1.
	MaxAttempts int
	// InitialInterval is the wait before the second attempt. Zero retries immediately.
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration
	// Multiplier grows the interval after each attempt
	Multiplier float64
	// JitterFactor in [0,1] randomizes each interval by ±factor
	JitterFactor float64
}

// DefaultPolicy is suited to network calls: 3 attempts, 100ms doubling, ±10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Immediate retries up to attempts times without waiting.
func Immediate(attempts int) Policy {
	return Policy{MaxAttempts: attempts}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialInterval < 0 {
		p.InitialInterval = 0
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 30 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	p.JitterFactor = math.Max(0, math.Min(1, p.JitterFactor))
	return p
}

// Interval returns the wait after the given zero-based attempt.
func (p Policy) Interval(attempt int) time.Duration {
	p = p.normalized()
	if p.InitialInterval == 0 {
		return 0
	}

	interval := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if p.JitterFactor > 0 {
		jitter := interval * p.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	if interval < 0 {
		interval = float64(p.InitialInterval)
	}
	return time.Duration(interval)
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// Result describes a finished retry loop
type Result struct {
	// Err is nil on success, the unwrapped error for permanent failures,
	// ErrAttemptsExhausted or ErrContextCanceled otherwise.
	Err           error
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// Callback is invoked before each wait
type Callback func(attempt int, err error, next time.Duration)

// Do runs op under the policy
func (p Policy) Do(ctx context.Context, op Operation) *Result {
	return p.DoWithCallback(ctx, op, nil)
}

// DoWithCallback runs op under the policy, calling cb before every retry
func (p Policy) DoWithCallback(ctx context.Context, op Operation, cb Callback) *Result {
	p = p.normalized()
	start := time.Now()
	result := &Result{}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			break
		}

		err := op(ctx)
		if err == nil {
			result.Err = nil
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			return result
		}
		result.LastError = err

		var permErr *PermanentError
		if errors.As(err, &permErr) {
			result.Err = permErr.Err
			result.LastError = permErr.Err
			result.TotalDuration = time.Since(start)
			return result
		}

		if attempt == p.MaxAttempts-1 {
			result.Err = ErrAttemptsExhausted
			break
		}

		wait := p.Interval(attempt)
		if cb != nil {
			cb(attempt+1, err, wait)
		}
		if wait == 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Err = ErrContextCanceled
			result.TotalDuration = time.Since(start)
			return result
		case <-timer.C:
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// Value runs fn under the policy and returns its value. On failure the error wraps
// both the loop outcome and the last error seen.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	res := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if res.Err == nil {
		return out, nil
	}
	if res.LastError != nil && !errors.Is(res.Err, res.LastError) {
		return out, errors.Join(res.Err, res.LastError)
	}
	return out, res.Err
}
