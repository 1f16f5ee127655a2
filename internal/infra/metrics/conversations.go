package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	conversationsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_started_total",
			Help: "Conversation channels created, per flow kind.",
		},
		[]string{"flow"},
	)

	conversationsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_completed_total",
			Help: "Conversations that reached their terminal message, per flow kind.",
		},
		[]string{"flow"},
	)

	answersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answers_recorded_total",
			Help: "Accepted step answers, per flow kind and step.",
		},
		[]string{"flow", "step"},
	)

	validationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Rejected answers, per flow kind and step.",
		},
		[]string{"flow", "step"},
	)

	editErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edit_errors_total",
			Help: "Edits that failed re-validation, per flow kind and step.",
		},
		[]string{"flow", "step"},
	)
)

func init() {
	register(conversationsStarted, conversationsCompleted, answersRecorded, validationErrors, editErrors)
}

func IncConversationStarted(flow string)   { conversationsStarted.WithLabelValues(flow).Inc() }
func IncConversationCompleted(flow string) { conversationsCompleted.WithLabelValues(flow).Inc() }
func IncAnswerRecorded(flow, step string)  { answersRecorded.WithLabelValues(flow, step).Inc() }
func IncValidationError(flow, step string) { validationErrors.WithLabelValues(flow, step).Inc() }
func IncEditError(flow, step string)       { editErrors.WithLabelValues(flow, step).Inc() }
