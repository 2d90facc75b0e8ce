// Crosstown Protocol
// Copyright (C) 2026 Crosstown Project
//
// This file is part of Crosstown.
//
// Crosstown is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Crosstown is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Crosstown. If not, see <https://www.gnu.org/licenses/>.

package health

import "time"

// Status represents the overall health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HealthStatus represents the complete health status of a node.
type HealthStatus struct {
	Status        Status            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	BootstrapInfo *BootstrapHealth  `json:"bootstrap,omitempty"`
	SystemStatus  *SystemHealth     `json:"system,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
}

// BootstrapHealth reports where the bootstrap orchestrator's lifecycle
// state machine currently sits (spec §4.9/§9's phase tagged union).
type BootstrapHealth struct {
	Status Status `json:"status"`
	Phase  string `json:"phase"`
	Ready  bool   `json:"ready"`
}

// SystemHealth represents process resource health.
type SystemHealth struct {
	Status        Status  `json:"status"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskUsedGB    uint64  `json:"disk_used_gb"`
	DiskTotalGB   uint64  `json:"disk_total_gb"`
	DiskPercent   float64 `json:"disk_percent"`
	GoRoutines    int     `json:"goroutines"`
	Error         string  `json:"error,omitempty"`
}
