package core

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecohabit_session_verifications_total",
		Help: "Session verifications by outcome",
	}, []string{"outcome"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecohabit_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	revocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecohabit_revocations_total",
		Help: "Tokens revoked through logout",
	})

	revocationsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecohabit_revocations_purged_total",
		Help: "Expired revocation entries removed by the sweeper",
	})
)

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
