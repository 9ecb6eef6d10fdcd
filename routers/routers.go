package routers

import (
	"dag-syncer/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up the read-only observability routes
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Progress snapshot of every running historical syncer
	r.HandleFunc("/sync/status", h.SyncStatus).Methods("GET")

	// Persisted un-synced gap records awaiting backfill
	r.HandleFunc("/sync/ranges", h.SyncRanges).Methods("GET")

	// Liveness plus node connectivity
	r.HandleFunc("/healthz", h.Health).Methods("GET")
}
