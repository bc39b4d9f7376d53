package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccountEvents counts account lifecycle transitions.
	AccountEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_account_events_total",
		Help: "Account lifecycle events by type",
	}, []string{"event"})

	// EmailDeliveries counts outgoing mail by message kind and result.
	EmailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_email_deliveries_total",
		Help: "Outgoing email deliveries by kind and result",
	}, []string{"kind", "result"})

	// OTPSwept counts expired or consumed reset codes removed by the sweeper.
	OTPSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_otp_swept_total",
		Help: "Total number of expired or consumed OTP tokens removed",
	})

	// Reactions counts blog reaction toggles by kind and resulting state.
	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_blog_reactions_total",
		Help: "Blog reaction toggles by kind and result",
	}, []string{"kind", "result"})
)

// RecordAccountEvent increments the lifecycle counter for event.
func RecordAccountEvent(event string) {
	AccountEvents.WithLabelValues(event).Inc()
}

// RecordEmail increments the delivery counter.
func RecordEmail(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	EmailDeliveries.WithLabelValues(kind, result).Inc()
}
