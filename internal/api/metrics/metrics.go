// Package metrics defines the custom Prometheus metrics of the accounts
// service. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are created unregistered; call Register once with the registry the
// /metrics endpoint serves from.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "accounts"

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultFailure = "failure"
)

// ── Authentication ────────────────────────────────────────────────────────────

// RegistrationsTotal counts sign-up attempts.
// Label:
//   - result: "success", "invalid" (validation or conflict) or "failure" (server error)
var RegistrationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid" (bad credentials, disabled or malformed) or "failure"
var LoginAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenRefreshesTotal counts refresh-token rotations.
// Label:
//   - result: "success", "invalid" (bad, expired or revoked token) or "failure"
var TokenRefreshesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of refresh-token rotations, by result.",
	},
	[]string{"result"},
)

// ── Live validation ───────────────────────────────────────────────────────────

// LiveValidationsTotal counts single-field checks from the browser forms.
// Labels:
//   - field: "username", "email" or "password"
//   - valid: "true" or "false"
var LiveValidationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_validations_total",
		Help:      "Total number of live field validations, by field and outcome.",
	},
	[]string{"field", "valid"},
)

var collectors = []prometheus.Collector{
	RegistrationsTotal,
	LoginAttemptsTotal,
	TokenRefreshesTotal,
	LiveValidationsTotal,
}

// Register adds every custom metric to reg. Registering the same collectors
// into the same registry twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
