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

package voting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts voting activity across every engine sharing it
type Metrics struct {
	proposals prometheus.Counter
	votes     *prometheus.CounterVec
	enactions prometheus.Counter
}

// NewMetrics registers the voting metrics with promRegistry
func NewMetrics(promRegistry prometheus.Registerer) *Metrics {
	promautoFactory := promauto.With(promRegistry)
	return &Metrics{
		proposals: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_voting_proposals_total",
			Help: "total number of proposed votes",
		}),
		votes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_voting_votes_total",
				Help: "total number of cast votes by choice",
			},
			[]string{"choice"},
		),
		enactions: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_voting_enactions_total",
			Help: "total number of enacted votes",
		}),
	}
}
