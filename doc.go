// Package funnel provides an embeddable marketing funnel: a home page with
// a delayed offer block, a presell article, upsell and downsell steps and a
// thank-you page, all of which carry the visitor's attribution parameters
// (UTM tags and ad click IDs) from page to page and onto checkout links.
//
// Funnel is designed as an SDK-first library, configured with the
// functional options pattern and run with a context-controlled lifecycle.
//
// # Quick Start
//
//	f, _ := funnel.New(funnel.WithTitle("Acme"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	f.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
//	f, err := funnel.New(
//	    funnel.WithPort(9090),
//	    funnel.WithBaseURL("https://shop.example.com"),
//	    funnel.WithCheckout("https://pay.example.com/upsell", "https://pay.example.com/downsell"),
//	    funnel.WithSQLiteStore("funnel.db"),
//	    funnel.WithAdmin("admin", os.Getenv("FUNNEL_ADMIN_PASSWORD")),
//	)
//
// # Attribution parameters
//
// Each page load reads the parameters of the request address, merges them
// over the ones already held by the visitor's session (the address wins)
// and stores the merged set back. Links rendered on the page, and the
// redirects behind the offer and accept/decline buttons, carry the merged
// set. Parameters placed in the fragment ("#gclid=...") never reach the
// server with the request, so the pages report them through
// POST /api/params/capture. The params package holds the reusable pieces.
//
// # Architecture
//
// Funnel consists of several packages:
//
//   - params: parameter extraction, merging and outgoing address building
//   - internal/session: cookie sessions holding each visitor's parameters
//   - internal/store: customization storage (memory or SQLite) with pub/sub
//   - internal/server: HTTP pages, redirects, JSON API and admin endpoints
//   - internal/metrics: Prometheus collectors
//   - web: embedded page templates
//
// The internal packages are not part of the public API and may change
// without notice.
package funnel
