// Standalone mock checkout for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockcheckout
//
// Then in another terminal:
//
//	go run ./cmd/funnel serve -c example/funnel.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/funnel/params"
)

func main() {
	fmt.Println("Mock checkout starting on :9999")
	fmt.Println("Every /checkout/... request echoes the parameters it carried")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	http.HandleFunc("/checkout/", func(w http.ResponseWriter, r *http.Request) {
		received := params.FromAddress(r.URL)
		slog.Info("checkout reached", "path", r.URL.Path, "params", received.Encode())

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":   r.URL.Path,
			"params": received,
		})
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
