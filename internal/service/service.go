// ABOUTME: Shared plumbing for entity services: options, clock, and error mapping.
// ABOUTME: Every service error is logged and returned as a taxonomy error.
package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
)

// Option configures a service.
type Option func(*options)

type options struct {
	now  func() time.Time
	rand *rand.Rand
}

// WithClock overrides the current time, for sample data and stats windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRand overrides the randomness source used for sample data.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rand = r }
}

func buildOptions(opts []Option) options {
	o := options{
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lockedRand serializes access to a *rand.Rand, which is not goroutine safe.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// fail maps err to the taxonomy and logs it under label.
func fail(label string, err error) error {
	err = apperr.From(err)
	apperr.Log(label, err)
	return err
}

func validateDate(field, date string) error {
	if _, err := models.ParseDate(date); err != nil {
		return apperr.Validation(field, err.Error())
	}
	return nil
}

func validateStatus(status models.HealthStatus) error {
	if !models.IsValidHealthStatus(string(status)) {
		return apperr.Validation("status", "status must be one of good, normal, bad")
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
