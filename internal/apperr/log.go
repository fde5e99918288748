// ABOUTME: Error logging sink for the taxonomy.
// ABOUTME: Forwards labelled errors to a charmbracelet/log logger.
package apperr

import (
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var sink atomic.Pointer[log.Logger]

func init() {
	sink.Store(log.NewWithOptions(io.Discard, log.Options{}))
}

// SetLogger replaces the sink used by Log.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.NewWithOptions(io.Discard, log.Options{})
	}
	sink.Store(l)
}

// Logger returns the current sink.
func Logger() *log.Logger {
	return sink.Load()
}

// Log records err tagged with a context label.
func Log(label string, err error) {
	if err == nil {
		return
	}
	kv := []any{"at", time.Now().UTC().Format(time.RFC3339), "err", err}
	if label != "" {
		kv = append(kv, "context", label)
	}
	var e *Error
	if errors.As(err, &e) {
		kv = append(kv, "kind", string(e.Kind))
		if e.Code != "" {
			kv = append(kv, "code", e.Code)
		}
		if e.Field != "" {
			kv = append(kv, "field", e.Field)
		}
		if e.Err != nil {
			kv = append(kv, "cause", e.Err)
		}
	}
	sink.Load().Error("error", kv...)
}
