// Package auth defines credentials and the credential store consumed by the
// HTTP client, with an in-memory store, a client_credentials token fetcher and
// an optional single-flight wrapper that coalesces concurrent refreshes.
package auth
