// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bondingcurve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	buys            prometheus.Counter
	sells           prometheus.Counter
	transitionState prometheus.Gauge
}

// NewMetrics registers the bonding curve metrics with promRegistry
func NewMetrics(promRegistry prometheus.Registerer) *Metrics {
	promautoFactory := promauto.With(promRegistry)
	return &Metrics{
		buys: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_bondingcurve_buys_total",
			Help: "total number of buys from the curve",
		}),
		sells: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_bondingcurve_sells_total",
			Help: "total number of sells to the curve",
		}),
		transitionState: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "gavel_bondingcurve_transition_state",
			Help: "transition state of the curve (0 none, 1 pending, 2 completed)",
		}),
	}
}
