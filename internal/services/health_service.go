package services

import (
	"context"
	"runtime"
	"time"

	"churncli/internal/config"

	ws "churncli/internal/websocket"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	hub       *ws.Hub
	startTime time.Time
}

// NewHealthService creates a new health service
func NewHealthService(version string, paths *config.Paths, hub *ws.Hub) *HealthService {
	return &HealthService{
		version:   version,
		paths:     paths,
		hub:       hub,
		startTime: time.Now(),
	}
}

// Check returns the current health status. The feature table being
// absent is reported but does not make the service unhealthy; scoring
// works without it.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{
			"feature_table":     config.FileExists(s.paths.FeaturesCSV),
			"websocket_clients": clients,
		},
	}
}
