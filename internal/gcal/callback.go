// ABOUTME: Local HTTP listener that receives the OAuth redirect from Google.
// ABOUTME: Used by both account sign-in and calendar connection flows.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
)

// CallbackResult is what the provider sent back to the redirect URL.
type CallbackResult struct {
	State string
	Code  string
	Err   error
}

// CallbackHandler routes GET path to a handler that reports the redirect
// parameters on results. results should be buffered.
func CallbackHandler(path string, results chan<- CallbackResult) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		res := CallbackResult{State: q.Get("state"), Code: q.Get("code")}
		switch {
		case q.Get("error") != "":
			res.Err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case res.Code == "":
			res.Err = errors.New("authorization response missing code")
		}

		if res.Err != nil {
			http.Error(w, res.Err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprintln(w, "healthcal is authorized. You can close this window.")
		}

		select {
		case results <- res:
		default:
		}
	}).Methods(http.MethodGet)
	return r
}

// AwaitCallback listens on redirectURL's host until the provider redirects
// back or ctx ends.
func AwaitCallback(ctx context.Context, redirectURL string) (CallbackResult, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("parse redirect url: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("listen for oauth callback: %w", err)
	}

	results := make(chan CallbackResult, 1)
	srv := &http.Server{
		Handler:           CallbackHandler(path, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res, res.Err
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}
