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

// Package health exposes a node's liveness and readiness, where
// readiness is tied directly to the bootstrap orchestrator (C9)
// reaching its "ready" phase (spec §9's lifecycle tagged union).
package health

import (
	"sync"
	"time"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
)

// PhaseTracker watches a lifecycle.Broadcaster for phase transitions
// and exposes the latest phase as a plain read, so the health server
// never blocks on bootstrap internals.
type PhaseTracker struct {
	mu    sync.RWMutex
	phase lifecycle.Phase
}

// NewPhaseTracker creates a tracker starting at the Discovering phase
// and subscribes it to broadcaster.
func NewPhaseTracker(broadcaster *lifecycle.Broadcaster) *PhaseTracker {
	t := &PhaseTracker{phase: lifecycle.Discovering}
	if broadcaster != nil {
		broadcaster.Subscribe(t.onEvent)
	}
	return t
}

func (t *PhaseTracker) onEvent(e lifecycle.Event) {
	switch ev := e.(type) {
	case lifecycle.PhaseChanged:
		t.mu.Lock()
		t.phase = ev.To
		t.mu.Unlock()
	case lifecycle.Ready:
		t.mu.Lock()
		t.phase = lifecycle.Ready
		t.mu.Unlock()
	}
}

// Phase returns the current bootstrap phase.
func (t *PhaseTracker) Phase() lifecycle.Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// Checker performs health and readiness checks.
type Checker struct {
	phase *PhaseTracker
}

// NewChecker creates a new health checker tied to phase.
func NewChecker(phase *PhaseTracker) *Checker {
	return &Checker{phase: phase}
}

// CheckAll performs all health checks.
func (c *Checker) CheckAll() *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	status.BootstrapInfo = c.checkBootstrap()
	if status.BootstrapInfo.Status != StatusHealthy {
		status.Status = status.BootstrapInfo.Status
	}

	status.SystemStatus = CheckSystem()
	if status.SystemStatus.Status != StatusHealthy {
		if status.Status == StatusHealthy {
			status.Status = status.SystemStatus.Status
		} else if status.SystemStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
		if status.SystemStatus.Error != "" {
			status.Errors = append(status.Errors, "system: "+status.SystemStatus.Error)
		}
	}

	return status
}

func (c *Checker) checkBootstrap() *BootstrapHealth {
	if c.phase == nil {
		return &BootstrapHealth{Status: StatusDegraded, Phase: "unknown", Ready: false}
	}

	phase := c.phase.Phase()
	info := &BootstrapHealth{Phase: phase.String(), Ready: phase == lifecycle.Ready}

	switch phase {
	case lifecycle.Ready:
		info.Status = StatusHealthy
	case lifecycle.Failed:
		info.Status = StatusUnhealthy
	default:
		info.Status = StatusDegraded
	}

	return info
}

// IsReady reports whether bootstrap has reached the ready phase.
func (c *Checker) IsReady() bool {
	if c.phase == nil {
		return false
	}
	return c.phase.Phase() == lifecycle.Ready
}
