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

package ncpstats

import (
	"github.com/prometheus/client_golang/prometheus"
)

var counterNames = []string{
	PacketsSent,
	PacketsReceived,
	FieldsRouted,
	DecodeWarnings,
	CommandErrors,
	CommandWarnings,
	Timeouts,
}

// PrometheusRecorder wraps Counters as a prometheus.Collector, the
// same registry-based shape as ptp/sptp/stats.PrometheusExporter but
// without owning its own HTTP listener: callers register it on
// whatever *prometheus.Registry their process already exposes.
type PrometheusRecorder struct {
	*Counters
	desc map[string]*prometheus.Desc
}

// NewPrometheusRecorder builds a PrometheusRecorder with one counter
// metric per known counter, labeled by the connection's remote hostname.
func NewPrometheusRecorder(remote string) *PrometheusRecorder {
	desc := make(map[string]*prometheus.Desc, len(counterNames))
	for _, name := range counterNames {
		desc[name] = prometheus.NewDesc(
			"ncp_connection_"+name,
			"NCP connection counter: "+name,
			nil,
			prometheus.Labels{"remote": remote},
		)
	}
	return &PrometheusRecorder{Counters: NewCounters(), desc: desc}
}

// Describe implements prometheus.Collector.
func (p *PrometheusRecorder) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range p.desc {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (p *PrometheusRecorder) Collect(ch chan<- prometheus.Metric) {
	snap := p.Snapshot()
	for _, name := range counterNames {
		ch <- prometheus.MustNewConstMetric(p.desc[name], prometheus.CounterValue, float64(snap[name]))
	}
}
