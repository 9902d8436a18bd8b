// Package metrics defines the custom Prometheus metrics of the blog API. It is
// the single source of truth for metric names, labels, and help strings.
//
// All collectors register with the default registry on package init through
// promauto; the /metrics endpoint serves that registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blog"

// Login results used as the "result" label of LoginsTotal.
const (
	LoginSuccess      = "success"
	LoginInvalid      = "invalid"
	LoginLocked       = "locked"
	LoginUnverified   = "unverified"
	LoginStateRetried = "state_retry"
)

// ── Account metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid", "locked", "unverified" or "state_retry"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AccountLockoutsTotal counts transitions into the locked state.
var AccountLockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_lockouts_total",
		Help:      "Total number of accounts locked after repeated failed logins.",
	},
)

// SignupsTotal counts accounts created through signup.
var SignupsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of accounts registered.",
	},
)

// ── Content metrics ───────────────────────────────────────────────────────────

// PostMutationsTotal counts successful post writes.
// Label:
//   - kind: "newPost", "postUpdated" or "postDeleted"
var PostMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "post_mutations_total",
		Help:      "Total number of post mutations, by kind.",
	},
	[]string{"kind"},
)

// ── Notifier metrics ──────────────────────────────────────────────────────────

// NotifierSubscribers tracks the number of connected push observers.
var NotifierSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notifier_subscribers",
		Help:      "Current number of connected change observers.",
	},
)

// NotifierDroppedTotal counts change events that were not delivered.
// Label:
//   - stage: "dispatch" (notifier buffer full) or "subscriber" (observer buffer full)
var NotifierDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifier_dropped_total",
		Help:      "Total number of change events dropped, by stage.",
	},
	[]string{"stage"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by a rate limiter.
// Label:
//   - route: limiter name (e.g. "login", "signup", "global")
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by a rate limiter.",
	},
	[]string{"route"},
)
