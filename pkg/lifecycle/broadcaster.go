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

package lifecycle

import (
	"sync"

	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
)

// Listener receives lifecycle events. A panicking listener is caught
// and logged; it never aborts the orchestrator or affects other
// listeners.
type Listener func(Event)

// Broadcaster fans out lifecycle events to an append-only list of
// listeners. Listeners are invoked synchronously against a snapshot of
// the list taken at emit time, so a listener added mid-emit never sees
// events emitted before it was added.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []Listener
	log       logger.Logger
}

// NewBroadcaster creates a Broadcaster. A nil logger falls back to
// logger.NewDefaultLogger().
func NewBroadcaster(log logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Broadcaster{log: log}
}

// Subscribe appends a listener. Safe to call concurrently with Emit.
func (b *Broadcaster) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Emit invokes every currently-subscribed listener with e. Per §5's
// shared-resource policy, a listener panic is caught and logged rather
// than propagated.
func (b *Broadcaster) Emit(e Event) {
	b.mu.RLock()
	snapshot := make([]Listener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.RUnlock()

	for _, l := range snapshot {
		b.invoke(l, e)
	}
}

func (b *Broadcaster) invoke(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("lifecycle listener panicked", logger.Any("recovered", r))
		}
	}()
	l(e)
}
