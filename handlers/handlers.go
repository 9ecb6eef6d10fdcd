package handlers

import (
	"encoding/json"
	"net/http"

	"dag-syncer/client"
	"dag-syncer/logger"
	"dag-syncer/repository"
	"dag-syncer/syncer"

	"go.uber.org/zap"
)

// StatsProvider exposes a syncer's progress snapshot
type StatsProvider interface {
	Stats() syncer.Stats
}

// Handler contains the read-only HTTP handlers for sync observability
type Handler struct {
	syncers []StatsProvider
	ranges  repository.RangeRepositoryInterface
	source  client.BlockSource
}

// NewHandler creates and returns a new Handler instance
func NewHandler(syncers []StatsProvider, ranges repository.RangeRepositoryInterface, source client.BlockSource) *Handler {
	return &Handler{syncers: syncers, ranges: ranges, source: source}
}

// SyncStatus handles GET requests for the progress of every running syncer
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	stats := make([]syncer.Stats, 0, len(h.syncers))
	for _, s := range h.syncers {
		stats = append(stats, s.Stats())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"syncers": stats,
	})
}

// SyncRanges handles GET requests for the persisted un-synced gap records
func (h *Handler) SyncRanges(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.ranges.GetAllRanges()
	if err != nil {
		logger.Logger.Error("Failed to read sync ranges", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ranges": ranges,
	})
}

// Health handles GET requests for liveness and node connectivity
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.source.IsConnected()
	w.Header().Set("Content-Type", "application/json")
	if !connected {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"node_connected": connected,
	})
}
