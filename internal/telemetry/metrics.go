package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики circuit breaker'ов и resilient executor'а.
//
// Каждое изменение состояния, отказ и попытка операции фиксируются —
// операторы должны видеть состояние брейкеров без чтения логов.
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hearth_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=half_open, 2=open)",
	}, []string{"breaker"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_breaker_rejections_total",
		Help: "Attempts rejected while the circuit breaker was open",
	}, []string{"breaker"})

	breakerTimeInState = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_breaker_state_seconds_total",
		Help: "Total time spent in each circuit breaker state",
	}, []string{"breaker", "state"})

	executorAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_executor_attempts_total",
		Help: "Operation attempts by class and outcome",
	}, []string{"class", "outcome"})

	executorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hearth_executor_attempt_seconds",
		Help:    "Operation attempt latency by class",
		Buckets: prometheus.DefBuckets,
	}, []string{"class"})

	pipelineEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_pipeline_events_total",
		Help: "Progress events emitted by pipeline step",
	}, []string{"step"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_requests_total",
		Help: "Completed requests by terminal status",
	}, []string{"status"})
)

// Числовые значения состояния брейкера для gauge.
var stateValues = map[string]float64{
	"closed":    0,
	"half_open": 1,
	"open":      2,
}

// RecordBreakerState обновляет gauge текущего состояния брейкера.
func RecordBreakerState(breaker, state string) {
	breakerState.WithLabelValues(breaker).Set(stateValues[state])
}

// RecordBreakerTransition фиксирует переход состояния и время,
// проведённое в предыдущем состоянии.
func RecordBreakerTransition(breaker, from, to string, inState time.Duration) {
	breakerTransitions.WithLabelValues(breaker, from, to).Inc()
	breakerTimeInState.WithLabelValues(breaker, from).Add(inState.Seconds())
	RecordBreakerState(breaker, to)
}

// RecordBreakerRejection фиксирует отказ в состоянии open.
func RecordBreakerRejection(breaker string) {
	breakerRejections.WithLabelValues(breaker).Inc()
}

// RecordAttempt фиксирует попытку операции: класс, исход, задержка.
func RecordAttempt(class, outcome string, latency time.Duration) {
	executorAttempts.WithLabelValues(class, outcome).Inc()
	executorLatency.WithLabelValues(class).Observe(latency.Seconds())
}

// RecordPipelineEvent фиксирует событие прогресса, испущенное шагом.
func RecordPipelineEvent(step string) {
	pipelineEvents.WithLabelValues(step).Inc()
}

// RecordRequestFinished фиксирует завершение запроса.
func RecordRequestFinished(status string) {
	requestsTotal.WithLabelValues(status).Inc()
}
