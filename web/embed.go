// Package web provides the embedded page templates for the funnel server.
//
// This package uses Go's embed directive to include the HTML templates at
// compile time, enabling single-binary deployment without external files.
//
// The templates are parsed by the server package at startup. Users of the
// funnel library should not need to interact with this package directly.
package web

import "embed"

// Templates is an embedded filesystem containing the page templates.
//
// The filesystem structure is:
//
//	templates/
//	  layout.html    - Shared page shell, admin menu and parameter capture script
//	  home.html      - Video page with the delayed offer block and guarantee
//	  presell.html   - News-style presell article
//	  upsell.html    - One-time upsell offer
//	  downsell.html  - Last-chance downsell offer
//	  thankyou.html  - Closing page
//	  admin.html     - Customization form (admin only)
//
//go:embed templates/*.html
var Templates embed.FS
