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
	// SpspRequests counts SPSP client requests by outcome.
	SpspRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spsp",
			Name:      "requests_total",
			Help:      "Total number of SPSP requests by outcome",
		},
		[]string{"outcome"}, // fulfilled, rejected, timeout, decode_error
	)

	// SpspServerRequests counts SPSP requests handled server-side.
	SpspServerRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spsp",
			Name:      "server_requests_total",
			Help:      "Total number of SPSP requests handled by the server",
		},
		[]string{"settled"}, // true, false
	)

	// ToonEncodeDuration tracks TOON encode/decode latency.
	ToonEncodeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "toon",
			Name:      "codec_duration_seconds",
			Help:      "TOON encode/decode duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12),
		},
		[]string{"op"}, // encode, decode
	)
)
