package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Invocation metrics
	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachai_invocations_total",
			Help: "Total number of coaching invocations",
		},
		[]string{"status"}, // status: success|error
	)

	InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachai_invocation_duration_seconds",
			Help:    "Coaching invocation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)

	StreamFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachai_stream_frames_total",
			Help: "Total number of streamed frames by kind",
		},
		[]string{"kind"}, // kind: text|progress
	)

	// Session metrics
	SessionBindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachai_session_bindings_total",
			Help: "Total number of session bindings by mode",
		},
		[]string{"mode"}, // mode: bound|degraded
	)

	// Model metrics
	ModelTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachai_model_tokens_total",
			Help: "Total tokens consumed by the coaching model",
		},
		[]string{"model", "type"}, // type: input|output
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachai_tool_executions_total",
			Help: "Total number of gateway tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachai_tool_latency_seconds",
			Help:    "Gateway tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(Invocations)
	prometheus.MustRegister(InvocationDuration)
	prometheus.MustRegister(StreamFrames)

	prometheus.MustRegister(SessionBindings)

	prometheus.MustRegister(ModelTokens)

	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordInvocation records a coaching invocation
func RecordInvocation(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	Invocations.WithLabelValues(status).Inc()
	InvocationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordBinding records a session binding outcome
func RecordBinding(mode string) {
	SessionBindings.WithLabelValues(mode).Inc()
}

// RecordTokens records model token consumption
func RecordTokens(model string, input, output int) {
	if input > 0 {
		ModelTokens.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		ModelTokens.WithLabelValues(model, "output").Add(float64(output))
	}
}

// RecordToolExecution records a gateway tool execution
func RecordToolExecution(tool string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}
