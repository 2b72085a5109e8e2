// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/middleware"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// RoomServer exposes the room sessions over HTTP and websockets.
type RoomServer struct {
	Manager *session.Manager
	Logger  *logrus.Logger

	// PublicURL is the base of join links; empty derives it from the request.
	PublicURL string

	AdminUser         string
	AdminPasswordHash string

	// WSRate and WSBurst bound the intents a single socket may send.
	WSRate  rate.Limit
	WSBurst int

	// Checks are run by /health; any failure reports 503.
	Checks map[string]HealthCheck
}

func NewRoomServer(m *session.Manager, logger *logrus.Logger) *RoomServer {
	return &RoomServer{
		Manager: m,
		Logger:  logger,
		WSRate:  10,
		WSBurst: 20,
		Checks:  map[string]HealthCheck{},
	}
}

// Routes returns the full handler tree wrapped in request logging.
func (s *RoomServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HealthHandler)

	mux.HandleFunc("POST /rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /rooms/{code}", s.GetRoomHandler)
	mux.HandleFunc("POST /rooms/{code}/intents", s.IntentHandler)
	mux.HandleFunc("GET /rooms/{code}/qr", s.QRHandler)
	mux.HandleFunc("GET /rooms/{code}/ws", s.RoomWSHandler)

	mux.Handle("GET /admin/rooms", s.requireAdmin(http.HandlerFunc(s.ListRoomsHandler)))

	return middleware.LogMiddleware(s.Logger)(mux)
}

// HealthHandler runs every registered check with a short deadline.
func (s *RoomServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			s.Logger.WithError(err).WithField("check", name).Warn("health check failed")
			status[name] = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	writeJSON(w, code, map[string]interface{}{"status": http.StatusText(code), "checks": status})
}
