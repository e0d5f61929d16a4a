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

package rtpreceiver

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus counters a Receiver reports to, keyed by the
// stream name the orchestrator assigns it. A nil *Metrics is a valid,
// no-op sink - Receiver never requires one.
type Metrics struct {
	received   prometheus.Counter
	dropped    prometheus.Counter
	duplicates prometheus.Counter
	tooOld     prometheus.Counter
	outOfOrder prometheus.Counter
}

// NewMetrics registers and returns the counter set for stream, on reg.
func NewMetrics(reg prometheus.Registerer, stream string) *Metrics {
	labels := prometheus.Labels{"stream": stream}
	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ravennakit",
			Subsystem:   "rtp_receiver",
			Name:        "packets_received_total",
			ConstLabels: labels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ravennakit",
			Subsystem:   "rtp_receiver",
			Name:        "packets_dropped_total",
			ConstLabels: labels,
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ravennakit",
			Subsystem:   "rtp_receiver",
			Name:        "packets_duplicate_total",
			ConstLabels: labels,
		}),
		tooOld: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ravennakit",
			Subsystem:   "rtp_receiver",
			Name:        "packets_too_old_total",
			ConstLabels: labels,
		}),
		outOfOrder: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ravennakit",
			Subsystem:   "rtp_receiver",
			Name:        "packets_out_of_order_total",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.received, m.dropped, m.duplicates, m.tooOld, m.outOfOrder)
	return m
}

// WithMetrics attaches m to the receiver; subsequent Dispatch/Drain calls
// report through it.
func (r *Receiver) WithMetrics(m *Metrics) *Receiver {
	r.metrics = m
	return r
}
