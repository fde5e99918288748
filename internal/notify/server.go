// ABOUTME: HTTP server exposing the test-notification endpoint.
// ABOUTME: Routes are registered on a gorilla/mux router.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

const (
	testSubject = "Health Calendar App - Test Notification"
	testBody    = "This is a test notification from your Health Calendar App."
)

// Server serves the notification API.
type Server struct {
	router   *mux.Router
	notifier Notifier
	logger   *log.Logger
}

// NewServer creates a Server that delivers through n.
func NewServer(n Notifier, logger *log.Logger) *Server {
	s := &Server{router: mux.NewRouter(), notifier: n, logger: logger}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/send-test-notification", s.handleSendTest).Methods(http.MethodPost)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("notification server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type testRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleSendTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("error sending test notification", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{"Failed to send test notification."})
		return
	}
	if req.UserID == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{"User ID and email are required."})
		return
	}

	err := s.notifier.Send(r.Context(), Notification{
		UserID:  req.UserID,
		Email:   req.Email,
		Subject: testSubject,
		Body:    testBody,
	})
	if err != nil {
		s.logger.Error("error sending test notification", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{"Failed to send test notification."})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{"Test notification sent successfully (simulated)."})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
