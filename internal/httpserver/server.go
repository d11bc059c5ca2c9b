package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tutorbot/internal/models"
	"tutorbot/internal/store"
)

// Server exposes the health check and Prometheus metrics endpoints.
type Server struct {
	users       store.UserStore
	payments    store.PaymentStore
	withdrawals store.WithdrawalStore
	log         zerolog.Logger

	httpSrv *http.Server
}

func New(addr string, users store.UserStore, payments store.PaymentStore, withdrawals store.WithdrawalStore, log zerolog.Logger) *Server {
	s := &Server{
		users:       users,
		payments:    payments,
		withdrawals: withdrawals,
		log:         log.With().Str("component", "http").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := s.users.Count(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("health check store error")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unavailable"})
		return
	}
	verified, err := s.users.ByVerified(ctx, true)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unavailable"})
		return
	}
	pendingPayments, err := s.payments.ByStatus(ctx, models.StatusPending)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unavailable"})
		return
	}
	pendingWithdrawals, err := s.withdrawals.ByStatus(ctx, models.WithdrawalPending)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"users":               total,
		"verified":            len(verified),
		"pending_payments":    len(pendingPayments),
		"pending_withdrawals": len(pendingWithdrawals),
		"time":                time.Now().UTC().Format(time.RFC3339),
	})
}
