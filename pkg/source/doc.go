// Package source fetches raw inventory from a NetBox-compatible REST API.
//
// Every request carries "Authorization: Token <token>" and runs through an
// explicit retry state machine:
//
//	Idle -> Attempting -> Succeeded
//	             |  ^
//	             v  |
//	           Backoff -> Failed
//
// Each attempt is bounded by the per-request timeout. Failures are classified
// as follows:
//
//   - 401/403: UNAUTHORIZED, never retried
//   - 429: RATE_LIMIT_EXCEEDED, retried after Retry-After
//   - 5xx, transport errors and timeouts: NETWORK, retried with exponential backoff
//   - any other 4xx: INVALID_REQUEST, never retried
//
// Fetch probes the status endpoint once, which verifies the token and
// records the API-Version header, then lists devices, platforms and
// optionally virtual machines concurrently, following next links until the
// last page.
package source
