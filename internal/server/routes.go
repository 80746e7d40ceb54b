package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"payment-reconciler/internal/models"
	"payment-reconciler/internal/reconciler"
)

// sessionView is the JSON shape every reconcile endpoint returns: the
// merged snapshot plus the session's advisory state.
type sessionView struct {
	SessionID string                `json:"sessionId"`
	OrderKey  string                `json:"orderKey"`
	Snapshot  models.StatusSnapshot `json:"snapshot"`
	Polling   string                `json:"polling"`
	Error     string                `json:"error,omitempty"`
	TimedOut  bool                  `json:"timedOut,omitempty"`
}

func viewOf(session *reconciler.Session) sessionView {
	return sessionView{
		SessionID: session.ID().String(),
		OrderKey:  session.OrderKey(),
		Snapshot:  session.Snapshot(),
		Polling:   session.PollState().String(),
		Error:     session.Err(),
		TimedOut:  session.TimedOut(),
	}
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", s.healthHandler)
	e.GET("/payments/reconcile", s.startReconcileHandler)
	e.GET("/payments/reconcile/:orderId", s.getReconcileHandler)
	e.DELETE("/payments/reconcile/:orderId", s.stopReconcileHandler)
	e.POST("/payments/resume", s.saveResumeHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	health := s.db.Health()

	if err := s.redisClient.Ping(c.Request().Context()); err != nil {
		health["redis_status"] = "down"
		health["redis_error"] = err.Error()
	} else {
		health["redis_status"] = "up"
	}

	return c.JSON(http.StatusOK, health)
}

// startReconcileHandler is where the gateway redirect lands. It accepts
// whatever query parameters survived the round trip and starts (or
// rejoins) a reconciliation session for the order.
func (s *Server) startReconcileHandler(c echo.Context) error {
	redirect := reconciler.ParseRedirect(c.QueryParams())

	session, err := s.manager.StartOrGet(c.Request().Context(), redirect)
	if err != nil {
		if errors.Is(err, reconciler.ErrMissingIdentifier) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "No order identifier in redirect parameters or resume cache",
			})
		}
		log.Printf("Failed to start reconciliation: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start reconciliation"})
	}

	return c.JSON(http.StatusOK, viewOf(session))
}

func (s *Server) getReconcileHandler(c echo.Context) error {
	session, ok := s.manager.Get(c.Param("orderId"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No reconciliation session for this order"})
	}

	return c.JSON(http.StatusOK, viewOf(session))
}

func (s *Server) stopReconcileHandler(c echo.Context) error {
	if !s.manager.Stop(c.Param("orderId")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No reconciliation session for this order"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Reconciliation stopped"})
}

// saveResumeHandler records the identifiers and amount at payment
// creation time, so the status view can recover them after the gateway
// redirect.
func (s *Server) saveResumeHandler(c echo.Context) error {
	var record models.ResumeRecord

	if err := c.Bind(&record); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	if record.ProviderCollectID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "providerCollectId is required"})
	}

	if record.Amount < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount must not be negative"})
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := s.resumeStore.Save(c.Request().Context(), &record); err != nil {
		log.Printf("Failed to save resume record for %s: %v", record.ProviderCollectID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save resume record"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "Resume record saved"})
}
