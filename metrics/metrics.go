package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tournament_ranking"

// Metrics groups the Prometheus collectors of the bracket and ranking engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	matchResults    *prometheus.CounterVec
	roundsGenerated *prometheus.CounterVec
	pointsAwarded   prometheus.Counter
	correctionRuns  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		matchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_results_total",
			Help:      "Match results recorded, by phase type and outcome.",
		}, []string{"phase_type", "outcome"}),
		roundsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_generated_total",
			Help:      "Bracket rounds generated, by phase type and trigger.",
		}, []string{"phase_type", "trigger"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_points_awarded_total",
			Help:      "Ranking points credited to teams.",
		}),
		correctionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_runs_total",
			Help:      "Ranking correction job runs, by job and outcome.",
		}, []string{"job", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.matchResults, m.roundsGenerated, m.pointsAwarded, m.correctionRuns)
	}
	return m
}

func (m *Metrics) MatchResult(phaseType string, tie bool) {
	if m == nil {
		return
	}
	outcome := "winner"
	if tie {
		outcome = "tie"
	}
	m.matchResults.WithLabelValues(phaseType, outcome).Inc()
}

// RoundGenerated counts a new round; trigger is "manual" or "cascade".
func (m *Metrics) RoundGenerated(phaseType, trigger string) {
	if m == nil {
		return
	}
	m.roundsGenerated.WithLabelValues(phaseType, trigger).Inc()
}

func (m *Metrics) PointsAwarded(points int) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(points))
}

// CorrectionRun counts a job run; outcome is "applied", "skipped" or "failed".
func (m *Metrics) CorrectionRun(job, outcome string) {
	if m == nil {
		return
	}
	m.correctionRuns.WithLabelValues(job, outcome).Inc()
}
