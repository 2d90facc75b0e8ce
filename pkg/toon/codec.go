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

package toon

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
)

// Codec is the injection point named by configuration as toonEncoder/
// toonDecoder: the pair of functions a component uses to turn a signed
// event into its ILP wire payload and back. DefaultCodec wraps the
// package-level Encode/Decode; a process wiring in an alternate wire
// format implements Codec and passes it in through configuration
// instead.
type Codec interface {
	Encode(e *event.SignedEvent) ([]byte, error)
	Decode(data []byte) (*event.SignedEvent, error)
}

// DefaultCodec is the Codec backed by this package's TOON
// implementation. It is the zero-value default wherever a Codec field
// is left unset.
type DefaultCodec struct{}

func (DefaultCodec) Encode(e *event.SignedEvent) ([]byte, error) {
	timer := prometheus.NewTimer(metrics.ToonEncodeDuration.WithLabelValues("encode"))
	defer timer.ObserveDuration()
	return Encode(e)
}

func (DefaultCodec) Decode(data []byte) (*event.SignedEvent, error) {
	timer := prometheus.NewTimer(metrics.ToonEncodeDuration.WithLabelValues("decode"))
	defer timer.ObserveDuration()
	return Decode(data)
}
