package app

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// unitHealth is the JSON shape served per unit by /health/units.
type unitHealth struct {
	Health     string `json:"health"`
	Loaded     bool   `json:"loaded"`
	LoadTimeMs int64  `json:"load_time_ms"`
	Executions int64  `json:"executions"`
	Errors     int64  `json:"errors"`
	LastError  string `json:"last_error,omitempty"`
}

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// unitsHealthHandler reports per-unit health derived from registry stats.
func (a *App) unitsHealthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Unit health endpoint hit.", "remote_addr", r.RemoteAddr)

	report := make(map[string]unitHealth)
	for name, health := range a.registry.HealthAll() {
		st, _ := a.registry.Stats(name)
		report[name] = unitHealth{
			Health:     string(health),
			Loaded:     st.Loaded,
			LoadTimeMs: st.LoadTime.Milliseconds(),
			Executions: st.ExecutionCount,
			Errors:     st.ErrorCount,
			LastError:  st.LastError,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		a.logger.Error("Failed to encode unit health report.", "error", err)
	}
}

// startHealthcheckServer initializes and runs the health check HTTP server.
func (a *App) startHealthcheckServer(port int) {
	a.logger.Debug("Configuring health check server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/health/units", a.unitsHealthHandler)

	addr := fmt.Sprintf(":%d", port)

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Health check server failed", "error", err)
		}
	}()
}
