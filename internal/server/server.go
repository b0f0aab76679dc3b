// Package server exposes the optional ops surface: liveness, the session
// statistics snapshot, the mirror contract counters and the Prometheus
// registry. It serves operators, not the watch pipeline; the process runs
// fine with the server disabled.
package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ethwatch/internal/mirror"
	"ethwatch/internal/model"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/metrics"
)

const (
	shutdownTimeout   = 5 * time.Second
	mirrorReadTimeout = 5 * time.Second
)

// StatsProvider hands out point-in-time session counters. The engine
// implements it.
type StatsProvider interface {
	Snapshot() model.StatsSnapshot
}

type Server struct {
	http *http.Server
}

func New(addr string, stats StatsProvider, mir mirror.Mirror) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{http: &http.Server{
		Addr:    addr,
		Handler: newRouter(stats, mir),
	}}
}

func newRouter(stats StatsProvider, mir mirror.Mirror) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.GinMiddleware())

	r.GET("/healthz", handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/stats", handleStats(stats))
	v1.GET("/mirror", handleMirror(mir))

	return r
}

// Start serves in the background until Shutdown. Listener failures are
// logged, not fatal: losing the ops surface must not stop the watch.
func (s *Server) Start() {
	go func() {
		logger.Info("ops server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		logger.Error("ops server forced to shutdown", zap.Error(err))
	}
}

func handleHealth(c *gin.Context) {
	OK(c, gin.H{
		"status":  "UP",
		"service": "ethwatch",
	})
}

type statsView struct {
	TransactionsMonitored uint64  `json:"transactions_monitored"`
	BlocksMonitored       uint64  `json:"blocks_monitored"`
	LastBlockNumber       uint64  `json:"last_block_number"`
	LastBlockAt           string  `json:"last_block_at,omitempty"`
	QueryRate             float64 `json:"query_rate"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
	StartedAt             string  `json:"started_at"`
}

func handleStats(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := stats.Snapshot()
		view := statsView{
			TransactionsMonitored: snap.TransactionsMonitored,
			BlocksMonitored:       snap.BlocksMonitored,
			LastBlockNumber:       snap.LastBlockNumber,
			QueryRate:             snap.QueryRate,
			UptimeSeconds:         snap.Uptime.Seconds(),
			StartedAt:             snap.StartedAt.UTC().Format(time.RFC3339),
		}
		if !snap.LastBlockAt.IsZero() {
			view.LastBlockAt = snap.LastBlockAt.UTC().Format(time.RFC3339)
		}
		OK(c, view)
	}
}

type mirrorView struct {
	TotalTransactions string `json:"total_transactions"`
	TotalBlocks       string `json:"total_blocks"`
	LastBlockNumber   string `json:"last_block_number"`
	QueryRate         string `json:"query_rate"`
}

func handleMirror(mir mirror.Mirror) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), mirrorReadTimeout)
		defer cancel()

		stats, err := mir.Statistics(ctx)
		if err != nil {
			Fail(c, http.StatusBadGateway, err)
			return
		}
		OK(c, mirrorView{
			TotalTransactions: bigString(stats.TotalTransactions),
			TotalBlocks:       bigString(stats.TotalBlocks),
			LastBlockNumber:   bigString(stats.LastBlockNumber),
			QueryRate:         bigString(stats.QueryRate),
		})
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
