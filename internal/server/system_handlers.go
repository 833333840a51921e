package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/driftlabs/driftd/internal/database"
	"github.com/driftlabs/driftd/internal/scheduler"
)

// SystemHandlers serves process and storage status endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	sched     *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	startedAt time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(databases []*database.DB, sched *scheduler.Scheduler, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		databases: databases,
		sched:     sched,
		jobs:      make(map[string]scheduler.Job),
		startedAt: time.Now(),
	}
}

// SetJob registers a job for manual triggering via the API.
func (h *SystemHandlers) SetJob(job scheduler.Job) {
	h.jobs[job.Name()] = job
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/status", h.HandleSystemStatus)
	r.Get("/system/database/stats", h.HandleDatabaseStats)
	r.Post("/system/jobs/{name}", h.HandleTriggerJob)
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"status":         "ok",
			"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
			"cpu_percent":    cpuPct,
			"memory_percent": memPct,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	stats := make([]map[string]interface{}, 0, len(h.databases))
	for _, db := range h.databases {
		entry := map[string]interface{}{
			"name":    db.Name(),
			"profile": string(db.Profile()),
			"path":    db.Path(),
			"healthy": true,
		}
		if err := db.HealthCheck(ctx); err != nil {
			entry["healthy"] = false
			entry["error"] = err.Error()
		}
		stats = append(stats, entry)
	}

	response := map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := h.sched.RunNow(job); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

// systemStats returns CPU and RAM usage percentages. The short sampling
// interval keeps the status endpoint fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
