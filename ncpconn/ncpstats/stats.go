/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ncpstats provides a pluggable counter sink for ncpconn
// connections, following the corpus's counter-map-with-mutex pattern
// (facebook/time's fbclock/stats), plus an adapter that exposes the
// same counters as Prometheus counter metrics.
package ncpstats

import "sync"

// Counter names recorded by a Connection.
const (
	PacketsSent     = "packets_sent"
	PacketsReceived = "packets_received"
	FieldsRouted    = "fields_routed"
	DecodeWarnings  = "decode_warnings"
	CommandErrors   = "command_errors"
	CommandWarnings = "command_warnings"
	Timeouts        = "timeouts"
)

// Recorder is the counter sink a Connection reports through. Callers
// that don't care about stats get a no-op-free default (Counters);
// tests can substitute a mock.
type Recorder interface {
	IncPacketsSent()
	IncPacketsReceived()
	IncFieldsRouted()
	IncDecodeWarnings()
	IncCommandErrors()
	IncCommandWarnings()
	IncTimeouts()
	Snapshot() map[string]int64
}

// Counters is a mutex-guarded map of named counters, the same shape as
// fbclock/stats.Stats.
type Counters struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounters returns a zeroed Counters ready to use.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]int64)}
}

func (c *Counters) incr(key string) {
	c.mu.Lock()
	c.values[key]++
	c.mu.Unlock()
}

// IncPacketsSent implements Recorder.
func (c *Counters) IncPacketsSent() { c.incr(PacketsSent) }

// IncPacketsReceived implements Recorder.
func (c *Counters) IncPacketsReceived() { c.incr(PacketsReceived) }

// IncFieldsRouted implements Recorder.
func (c *Counters) IncFieldsRouted() { c.incr(FieldsRouted) }

// IncDecodeWarnings implements Recorder.
func (c *Counters) IncDecodeWarnings() { c.incr(DecodeWarnings) }

// IncCommandErrors implements Recorder.
func (c *Counters) IncCommandErrors() { c.incr(CommandErrors) }

// IncCommandWarnings implements Recorder.
func (c *Counters) IncCommandWarnings() { c.incr(CommandWarnings) }

// IncTimeouts implements Recorder.
func (c *Counters) IncTimeouts() { c.incr(Timeouts) }

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
