package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// handleHealth reports process health, host load and cache database status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	status := "healthy"
	code := http.StatusOK
	cache := map[string]interface{}{"status": "disabled"}

	if s.cacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.cacheDB.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Cache database health check failed")
			status = "degraded"
			code = http.StatusServiceUnavailable
			cache["status"] = "unavailable"
		} else {
			cache["status"] = "ok"
			cache["profile"] = string(s.cacheDB.Profile())
			if stats, err := s.cacheDB.GetStats(); err == nil {
				cache["size_bytes"] = stats.SizeBytes
				cache["wal_size_bytes"] = stats.WALSizeBytes
			}
		}
	}

	response := map[string]interface{}{
		"status":      status,
		"version":     s.version,
		"service":     "pricecast",
		"cpu_percent": cpuPercent,
		"ram_percent": ramPercent,
		"cache":       cache,
		"timestamp":   time.Now().Format(time.RFC3339),
	}

	s.writeJSON(w, code, response)
}

// getSystemStats calculates CPU and RAM usage percentages
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
