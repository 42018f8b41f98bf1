package connect

import "time"

// RetryBuilder assembles the RetryPolicy of a step that talks to the
// remote API, such as an approval or a lookup that may hit a transient
// failure:
//
//	flow.StepWithRetryBuilder("Approve request",
//	    connect.ApproveByTemplateStep("TL-1"),
//	    connect.Retry(3).WithExponentialBackoff(time.Second, 2, 10*time.Second))
//
// A RetryBuilder is a value; every method returns a modified copy.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry runs a step at most attempts times. Values below one mean a
// single attempt.
func Retry(attempts int) RetryBuilder {
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: max(attempts, 1)}}
}

// WithExponentialBackoff waits initial before the second attempt and
// multiplies the wait by factor after each failure, up to limit. A factor
// <= 0 doubles the wait; a limit <= 0 leaves it uncapped.
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, factor float64, limit time.Duration) RetryBuilder {
	if factor <= 0 {
		factor = 2
	}
	return r.backoff(initial, factor, limit)
}

// WithConstantBackoff waits delay between attempts.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	return r.backoff(delay, 1, 0)
}

// Immediate retries without waiting.
func (r RetryBuilder) Immediate() RetryBuilder {
	return r.backoff(0, 0, 0)
}

// Policy returns the assembled policy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}

func (r RetryBuilder) backoff(initial time.Duration, factor float64, limit time.Duration) RetryBuilder {
	r.policy.InitialBackoff = initial
	r.policy.BackoffMultiplier = factor
	r.policy.MaxBackoff = limit
	return r
}
