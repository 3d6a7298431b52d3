package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/funnel"
)

func main() {
	// start mock checkout (see mock_checkout.go)
	go StartMockCheckoutServer(":9999")
	time.Sleep(100 * time.Millisecond)

	defaults := funnel.DefaultCustomization()
	defaults.Headline = "The 7-second morning ritual"
	defaults.MainOfferCheckoutURL = "http://localhost:9999/checkout/6-bottle"
	defaults.Offer1CheckoutURL = "http://localhost:9999/checkout/3-bottle"
	defaults.Offer2CheckoutURL = "http://localhost:9999/checkout/1-bottle"

	f, err := funnel.New(
		funnel.WithTitle("Acme Wellness"),
		funnel.WithPort(8080),
		funnel.WithRevealDelay(3*time.Second),
		funnel.WithDefaults(defaults),
		funnel.WithCheckout(
			"http://localhost:9999/checkout/upsell",
			"http://localhost:9999/checkout/downsell",
		),
		funnel.WithAdmin("", ""),
	)
	if err != nil {
		slog.Error("failed to create funnel", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Funnel Demo")
	fmt.Println()
	fmt.Println("  Landing page with tracking parameters:")
	fmt.Println("    http://localhost:8080/?utm_source=facebook&utm_campaign=demo&fbclid=abc")
	fmt.Println("  Fragment parameters (reported by the page script):")
	fmt.Println("    http://localhost:8080/pr#gclid=xyz&utm_medium=cpc")
	fmt.Println("  Admin preview and customization:")
	fmt.Println("    http://localhost:8080/admin")
	fmt.Println()
	fmt.Println("  Checkout redirects land on the mock checkout at :9999")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := f.Start(ctx); err != nil {
		slog.Error("funnel error", "error", err)
		os.Exit(1)
	}
}
