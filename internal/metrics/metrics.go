package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_requests_total",
		Help: "Backend requests by method and response status",
	}, []string{"method", "status"})

	SessionInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_invalidations_total",
		Help: "Session teardowns by reason",
	}, []string{"reason"})

	SignalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_signals_emitted_total",
		Help: "Process-wide signals emitted",
	}, []string{"signal"})
)

// Reasons for a session teardown.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonCorrupt      = "corrupt"
	ReasonLogout       = "logout"
	ReasonRemote       = "remote"
)
