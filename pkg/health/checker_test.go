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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
)

func TestPhaseTrackerReflectsPhaseChanges(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)
	tracker := NewPhaseTracker(b)

	assert.Equal(t, lifecycle.Discovering, tracker.Phase())

	b.Emit(lifecycle.PhaseChanged{From: lifecycle.Discovering, To: lifecycle.Registering})
	assert.Equal(t, lifecycle.Registering, tracker.Phase())

	b.Emit(lifecycle.Ready{PeerCount: 2, ChannelCount: 1})
	assert.Equal(t, lifecycle.Ready, tracker.Phase())
}

func TestCheckerNotReadyBeforeReadyPhase(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)
	tracker := NewPhaseTracker(b)
	checker := NewChecker(tracker)

	assert.False(t, checker.IsReady())

	status := checker.CheckAll()
	assert.Equal(t, "discovering", status.BootstrapInfo.Phase)
	assert.Equal(t, StatusDegraded, status.BootstrapInfo.Status)
	assert.Equal(t, StatusDegraded, status.Status)
}

func TestCheckerReadyAfterReadyPhase(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)
	tracker := NewPhaseTracker(b)
	checker := NewChecker(tracker)

	b.Emit(lifecycle.PhaseChanged{From: lifecycle.Announcing, To: lifecycle.Ready})
	assert.True(t, checker.IsReady())

	status := checker.CheckAll()
	assert.True(t, status.BootstrapInfo.Ready)
	assert.Equal(t, StatusHealthy, status.BootstrapInfo.Status)
}

func TestCheckerReportsFailedPhaseAsUnhealthy(t *testing.T) {
	b := lifecycle.NewBroadcaster(nil)
	tracker := NewPhaseTracker(b)
	checker := NewChecker(tracker)

	b.Emit(lifecycle.PhaseChanged{From: lifecycle.Registering, To: lifecycle.Failed})
	status := checker.CheckAll()
	assert.Equal(t, StatusUnhealthy, status.BootstrapInfo.Status)
	assert.Equal(t, StatusUnhealthy, status.Status)
}

func TestCheckerWithNilTrackerDegrades(t *testing.T) {
	checker := NewChecker(nil)
	assert.False(t, checker.IsReady())

	status := checker.CheckAll()
	assert.Equal(t, "unknown", status.BootstrapInfo.Phase)
}
