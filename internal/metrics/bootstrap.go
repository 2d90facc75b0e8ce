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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PhaseTransitions counts bootstrap phase transitions by from/to phase.
	PhaseTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "phase_transitions_total",
			Help:      "Total number of bootstrap phase transitions",
		},
		[]string{"from", "to"},
	)

	// PeersRegistered counts peers successfully registered during bootstrap.
	PeersRegistered = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "peers_registered_total",
			Help:      "Total number of peers registered during bootstrap",
		},
	)

	// HandshakesCompleted counts handshake outcomes by status.
	HandshakesCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "handshakes_total",
			Help:      "Total number of handshake attempts by outcome",
		},
		[]string{"status"}, // fulfilled, rejected, timeout, cancelled
	)

	// ChannelsOpened counts channels opened, by settlement chain.
	ChannelsOpened = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "channels_opened_total",
			Help:      "Total number of payment channels opened",
		},
		[]string{"chain"},
	)

	// BootstrapDuration tracks the wall-clock time of a full bootstrap() call.
	BootstrapDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "duration_seconds",
			Help:      "Duration of a full bootstrap run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
