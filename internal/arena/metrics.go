package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts arena activity for the /metrics endpoint.
type Metrics struct {
	MatchesCreated   prometheus.Counter
	MatchesActivated prometheus.Counter
	Settlements      *prometheus.CounterVec
	Answers          *prometheus.CounterVec
}

// NewMetrics registers arena counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "battle_matches_created_total",
			Help: "Matches created in WAITING state.",
		}),
		MatchesActivated: factory.NewCounter(prometheus.CounterOpts{
			Name: "battle_matches_activated_total",
			Help: "Matches that paired two players and went ACTIVE.",
		}),
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "battle_settlements_total",
			Help: "Settled matches by termination reason.",
		}, []string{"reason"}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "battle_answers_total",
			Help: "Answer submissions by result.",
		}, []string{"result"}),
	}
}
