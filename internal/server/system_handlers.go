package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"forecastdesk/internal/database"
	"forecastdesk/internal/modules/workspace"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	manager     *workspace.Manager
	databases   []*database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, manager *workspace.Manager, databases []*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now().UTC(),
		manager:     manager,
		databases:   databases,
	}
}

// SystemStatus is the response for GET /api/system/status
type SystemStatus struct {
	Status         string           `json:"status"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	Workspaces     int              `json:"workspaces"`
	Goroutines     int              `json:"goroutines"`
	CPUPercent     float64          `json:"cpu_percent"`
	MemUsedPercent float64          `json:"mem_used_percent"`
	DiskFreeBytes  uint64           `json:"disk_free_bytes"`
	Databases      []database.Stats `json:"databases"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := SystemStatus{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
	}
	if h.manager != nil {
		status.Workspaces = h.manager.Count()
	}

	// Hardware metrics are best-effort; failures degrade to zero values
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	} else if err != nil {
		h.log.Debug().Err(err).Msg("CPU stats unavailable")
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsedPercent = vm.UsedPercent
	} else {
		h.log.Debug().Err(err).Msg("Memory stats unavailable")
	}
	if usage, err := disk.Usage("/"); err == nil {
		status.DiskFreeBytes = usage.Free
	} else {
		h.log.Debug().Err(err).Msg("Disk stats unavailable")
	}

	for _, db := range h.databases {
		if db == nil {
			continue
		}
		stats, err := db.Stats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}
		status.Databases = append(status.Databases, stats)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}
