package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rockie",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rockie",
		Subsystem: "auth",
		Name:      "token_validations_total",
		Help:      "Token validations by result.",
	}, []string{"result"})

	rehashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rockie",
		Subsystem: "auth",
		Name:      "password_rehashes_total",
		Help:      "Stored password hashes upgraded after login.",
	})
)
