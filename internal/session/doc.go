// Package session provides the session-scoped key/value store behind the
// funnel's attribution parameters.
//
// Each browser session is identified by an opaque ID carried in a session
// cookie (no Expires attribute, so the browser discards it when the session
// ends). The server keeps one [Bucket] per session ID in a bounded LRU with
// an idle TTL; an evicted or expired bucket behaves exactly like a browser
// whose session storage was cleared.
//
// The main components are:
//
//   - [Manager]: owns the buckets and provides the HTTP middleware
//   - [Bucket]: a per-session map implementing [params.Store]
//   - [FromContext]: retrieves the request's bucket inside handlers
//
// This package is internal to the funnel server.
package session
