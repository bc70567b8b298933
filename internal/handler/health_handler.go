package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"studio-backend/internal/messaging"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Check probes one dependency.
type Check func(ctx context.Context) HealthCheckResult

// Pinger is anything with a connectivity probe, such as the Redis and
// Postgres audit stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready returns readiness check with dependencies. Checks run in parallel;
// the service is ready when every check reports "up" or "disabled".
func Ready(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := make(map[string]HealthCheckResult, len(checks))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				result := check(ctx)
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(name, check)
		}
		wg.Wait()

		allHealthy := true
		for _, result := range results {
			if result.Status == "down" {
				allHealthy = false
			}
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    results,
		}

		status := http.StatusOK
		if allHealthy {
			response["status"] = "ready"
		} else {
			response["status"] = "not_ready"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}

// PingCheck reports whether p answers its ping.
func PingCheck(p Pinger) Check {
	return func(ctx context.Context) HealthCheckResult {
		start := time.Now()
		err := p.Ping(ctx)
		latency := time.Since(start)

		if err != nil {
			return HealthCheckResult{
				Status:    "down",
				LatencyMs: latency.Milliseconds(),
				Error:     err.Error(),
			}
		}
		return HealthCheckResult{Status: "up", LatencyMs: latency.Milliseconds()}
	}
}

// DatabaseCheck verifies database connectivity and reports pool statistics
func DatabaseCheck(db *sql.DB) Check {
	return func(ctx context.Context) HealthCheckResult {
		start := time.Now()
		err := db.PingContext(ctx)
		latency := time.Since(start)

		if err != nil {
			return HealthCheckResult{
				Status:    "down",
				LatencyMs: latency.Milliseconds(),
				Error:     err.Error(),
			}
		}

		stats := db.Stats()
		return HealthCheckResult{
			Status:    "up",
			LatencyMs: latency.Milliseconds(),
			Metadata: map[string]interface{}{
				"connections_open":   stats.OpenConnections,
				"connections_in_use": stats.InUse,
				"connections_idle":   stats.Idle,
				"max_open":           stats.MaxOpenConnections,
			},
		}
	}
}

// RabbitMQCheck verifies the audit event bus connection. A nil connection
// means the bus is not configured.
func RabbitMQCheck(rmq *messaging.RabbitMQ) Check {
	return func(ctx context.Context) HealthCheckResult {
		if rmq == nil {
			return HealthCheckResult{Status: "disabled"}
		}
		if rmq.IsClosed() {
			return HealthCheckResult{
				Status: "down",
				Error:  "connection closed",
			}
		}
		return HealthCheckResult{Status: "up"}
	}
}

// StaticCheck reports a fixed status, for backends without a probe.
func StaticCheck(status string, metadata map[string]interface{}) Check {
	return func(context.Context) HealthCheckResult {
		return HealthCheckResult{Status: status, Metadata: metadata}
	}
}
