// ABOUTME: Push, list, and restore snapshots of the signed-in user's data.
// ABOUTME: Restores go through the export importer, so they are idempotent per date.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/models"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/oklog/ulid/v2"
)

// Snapshot describes one stored backup.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Records   int       `json:"records"`
	Schedules int       `json:"schedules"`
}

// Service backs up user data to a Client.
type Service struct {
	client   *Client
	exporter *service.Exporter
	users    func(context.Context) (*models.User, error)
}

// NewService creates a backup Service. users resolves the signed-in user.
func NewService(c *Client, exp *service.Exporter, users func(context.Context) (*models.User, error)) *Service {
	return &Service{client: c, exporter: exp, users: users}
}

func (s *Service) userPrefix(ctx context.Context) (string, error) {
	u, err := s.users(ctx)
	if err != nil {
		return "", apperr.From(err)
	}
	if u == nil {
		return "", apperr.AuthRequired()
	}
	return snapshotPrefix + u.ID.String() + ":", nil
}

// Push stores a snapshot of everything the user owns.
func (s *Service) Push(ctx context.Context) (*Snapshot, error) {
	prefix, err := s.userPrefix(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	id := ulid.Make()
	if err := s.client.set(prefix+id.String(), payload); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	return &Snapshot{
		ID:        id.String(),
		CreatedAt: ulid.Time(id.Time()),
		Records:   len(data.Records),
		Schedules: len(data.Schedules),
	}, nil
}

// List returns the user's snapshots, newest first.
func (s *Service) List(ctx context.Context) ([]Snapshot, error) {
	prefix, err := s.userPrefix(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := s.client.keysWithPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	out := make([]Snapshot, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		idStr := strings.TrimPrefix(keys[i], prefix)
		id, err := ulid.Parse(idStr)
		if err != nil {
			continue
		}
		snap := Snapshot{ID: idStr, CreatedAt: ulid.Time(id.Time())}
		if raw, err := s.client.get(keys[i]); err == nil {
			var data service.ExportData
			if json.Unmarshal(raw, &data) == nil {
				snap.Records = len(data.Records)
				snap.Schedules = len(data.Schedules)
			}
		}
		out = append(out, snap)
	}
	return out, nil
}

// Restore writes the snapshot matching idPrefix back for the user.
func (s *Service) Restore(ctx context.Context, idPrefix string) (*service.ImportResult, error) {
	prefix, err := s.userPrefix(ctx)
	if err != nil {
		return nil, err
	}
	key, err := s.client.keyByIDPrefix(prefix, idPrefix)
	if err != nil {
		return nil, apperr.Validation("id", err.Error())
	}
	raw, err := s.client.get(key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var data service.ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return s.exporter.Restore(ctx, &data)
}

// Delete removes the snapshot matching idPrefix.
func (s *Service) Delete(ctx context.Context, idPrefix string) error {
	prefix, err := s.userPrefix(ctx)
	if err != nil {
		return err
	}
	key, err := s.client.keyByIDPrefix(prefix, idPrefix)
	if err != nil {
		return apperr.Validation("id", err.Error())
	}
	return s.client.delete(key)
}

// Prune keeps the newest keep snapshots and deletes the rest.
func (s *Service) Prune(ctx context.Context, keep int) (int, error) {
	snaps, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for _, snap := range snaps[min(keep, len(snaps)):] {
		if err := s.Delete(ctx, snap.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
