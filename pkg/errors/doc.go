// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// The inventory pipeline classifies failures with these codes:
//
//   - UNAUTHORIZED: bad or expired source token, fatal for the cycle
//   - NETWORK: transient transport failure or per-request timeout, retried
//   - RATE_LIMIT_EXCEEDED: source throttling, retried after Retry-After
//   - SCHEMA: a single record was skipped during normalization
//   - NOT_READY: no snapshot has been published yet
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeNetwork,
//	    "device page request failed",
//	    ctx.Err(),
//	    map[string]any{
//	        "resource": "dcim/devices",
//	        "attempt":  2,
//	    },
//	)
package errors
