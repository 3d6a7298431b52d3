package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jpalmerr/funnel/params"
)

// StartMockCheckoutServer runs a stand-in checkout that reports the
// attribution parameters each redirect delivered. Orders are counted per
// offer so repeated clicks are visible in the log.
// Call this in a goroutine before starting the funnel.
func StartMockCheckoutServer(addr string) {
	var (
		orders = make(map[string]int)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/checkout/", func(w http.ResponseWriter, r *http.Request) {
		received := params.FromAddress(r.URL)
		offer := received["offer"]
		if offer == "" {
			offer = received["offer_type"]
		}

		mu.Lock()
		orders[offer]++
		count := orders[offer]
		mu.Unlock()

		slog.Info("checkout reached",
			"path", r.URL.Path,
			"offer", offer,
			"order", count,
			"utm_source", received[params.UTMSource],
		)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"path":   r.URL.Path,
			"params": received,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock checkout error", "error", err)
	}
}
