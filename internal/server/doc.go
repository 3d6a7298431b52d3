// Package server provides the HTTP server for the funnel pages and API.
//
// This package is internal to the funnel and handles all HTTP concerns:
//
//   - Pages: home, presell, upsell, downsell and thank-you, rendered from the
//     embedded templates with every outgoing link carrying the visitor's
//     attribution parameters
//   - Redirects: "/checkout/{offer}" and "/go/{step}/{choice}" stamp the click
//     details onto the next address
//   - Parameter API: "/api/params" and "/api/params/capture"
//   - Admin: the customization form, JSON API and a Server-Sent Events stream
//     that reloads open previews
//
// Every page load reads the parameters from the request address, merges them
// over the ones held by the visitor's session (the address wins) and stores
// the result back, so parameters survive navigation to addresses that no
// longer carry them.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
