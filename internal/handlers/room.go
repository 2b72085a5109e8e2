// internal/handlers/room.go
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/auth"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/game"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const (
	maxBodyBytes = 64 << 10
	qrSize       = 320
)

type createRoomRequest struct {
	Variant models.Variant         `json:"variant"`
	Rules   map[string]interface{} `json:"rules"`
}

type roomResponse struct {
	Code    string          `json:"code"`
	JoinURL string          `json:"joinUrl,omitempty"`
	State   models.RoomView `json:"state"`
}

// decodeBody reads an optional JSON body; an empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: bad request payload: %v", game.ErrValidation, err)
}

// CreateRoomHandler opens a room hosted by the caller.
func (s *RoomServer) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	hostID, err := EnsureParticipant(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := createRoomRequest{Variant: models.VariantKitchen}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.Manager.Create(r.Context(), req.Variant, hostID, req.Rules)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomResponse{
		Code:    sess.Code(),
		JoinURL: s.joinURL(r, sess.Code()),
		State:   sess.View(hostID),
	})
}

// GetRoomHandler returns the room as the caller may see it.
func (s *RoomServer) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	viewer, err := EnsureParticipant(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := s.Manager.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Code: sess.Code(), State: sess.View(viewer)})
}

// IntentHandler applies one intent on behalf of the caller and returns the
// resulting view. The actor always comes from the caller's token.
func (s *RoomServer) IntentHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := EnsureParticipant(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if actor == game.SystemActor {
		writeError(w, game.ErrNotAllowed)
		return
	}

	var in game.Intent
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Type == "" {
		writeError(w, fmt.Errorf("%w: missing intent type", game.ErrValidation))
		return
	}
	in.Actor = actor

	sess, err := s.Manager.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.Dispatch(r.Context(), in); err != nil && !errors.Is(err, game.ErrNoChange) {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"room":   sess.Code(),
			"intent": in.Type,
			"actor":  actor,
		}).Debug("intent rejected")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Code: sess.Code(), State: sess.View(actor)})
}

// QRHandler renders the room's join link as a PNG for the TV display.
func (s *RoomServer) QRHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Manager.Get(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	png, err := qrcode.Encode(s.joinURL(r, sess.Code()), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// joinURL builds the link players open on their phones.
func (s *RoomServer) joinURL(r *http.Request, code string) string {
	base := strings.TrimSuffix(s.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + code
}

// ListRoomsHandler lists the sessions live in this process.
func (s *RoomServer) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := s.Manager.List()
	if rooms == nil {
		rooms = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// requireAdmin guards next with basic auth checked against the argon2id
// admin hash. Without a configured hash the admin routes do not exist.
func (s *RoomServer) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminPasswordHash == "" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if ok && subtle.ConstantTimeCompare([]byte(user), []byte(s.AdminUser)) == 1 {
			match, err := auth.ComparePasswordAndHash(pass, s.AdminPasswordHash)
			if err != nil {
				s.Logger.WithError(err).Error("admin hash unusable")
			}
			if match {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="stir-the-pot admin"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
