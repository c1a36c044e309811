package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's prometheus collectors. Each server instance
// carries its own registry so tests can create servers freely without
// duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	onlineUsers       prometheus.Gauge
	framesReceived    *prometheus.CounterVec
	loginAttempts     *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateserver_active_connections",
			Help: "Number of currently open game-server connections",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateserver_online_users",
			Help: "Number of accounts currently tracked online",
		}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateserver_frames_received_total",
			Help: "Frames received, by command",
		}, []string{"command"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateserver_login_attempts_total",
			Help: "Login attempts, by outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.activeConnections,
		m.onlineUsers,
		m.framesReceived,
		m.loginAttempts,
	)

	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordActiveConnections sets the active connection gauge.
func (m *Metrics) RecordActiveConnections(count int) {
	m.activeConnections.Set(float64(count))
}

// RecordOnlineUsers sets the online user gauge.
func (m *Metrics) RecordOnlineUsers(count int) {
	m.onlineUsers.Set(float64(count))
}

// RecordFrameReceived counts one inbound frame for a command.
func (m *Metrics) RecordFrameReceived(command string) {
	m.framesReceived.WithLabelValues(command).Inc()
}

// Login outcome labels.
const (
	loginOutcomeSuccess     = "success"
	loginOutcomeBadCreds    = "bad_credentials"
	loginOutcomeWrongServer = "wrong_server"
	loginOutcomeEvicted     = "evicted"
	loginOutcomeWaitTimer   = "wait_timer"
	loginOutcomeMaintenance = "maintenance"
	loginOutcomeBanned      = "banned"
	loginOutcomeStoreError  = "store_error"
)

// RecordLoginAttempt counts one login attempt with its outcome.
func (m *Metrics) RecordLoginAttempt(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}
