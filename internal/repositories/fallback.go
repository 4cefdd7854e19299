package repositories

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// FallbackStore pairs a remote store with the local SQLite store.
//
// Writes go to the local store first, which is authoritative, and are then mirrored
// to the remote. When the remote is unreachable the write still succeeds and the store
// is marked dirty; reads are served locally until [FallbackStore.Sync] pushes the local
// state back out.
type FallbackStore struct {
	remote AlarmStore
	local  AlarmStore
	logger *log.Logger

	mu    sync.Mutex
	dirty bool
}

func NewFallbackStore(remote, local AlarmStore, logger *log.Logger) *FallbackStore {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &FallbackStore{remote: remote, local: local, logger: shared.WithLogger(logger, "component", "store")}
}

// Dirty reports whether the remote has missed writes.
func (s *FallbackStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *FallbackStore) markDirty(op string, err error) {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	s.logger.Warn("remote store unavailable, using local store", "op", op, "err", err)
}

// LoadAll prefers the remote copy, refreshing the local cache from it.
func (s *FallbackStore) LoadAll(ctx context.Context) ([]*models.Alarm, error) {
	if s.Dirty() {
		return s.local.LoadAll(ctx)
	}
	alarms, err := s.remote.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			s.markDirty("load", err)
			return s.local.LoadAll(ctx)
		}
		return nil, err
	}
	s.refreshLocal(ctx, alarms)
	return alarms, nil
}

// refreshLocal mirrors the remote collection into the local store.
func (s *FallbackStore) refreshLocal(ctx context.Context, remote []*models.Alarm) {
	local, err := s.local.LoadAll(ctx)
	if err != nil {
		s.logger.Warn("could not read local store", "err", err)
		return
	}

	seen := make(map[string]bool, len(remote))
	for _, a := range remote {
		seen[a.ID] = true
		c := a.Clone()
		if err := s.local.Update(ctx, c); errors.Is(err, shared.ErrAlarmNotFound) {
			err = s.local.Create(ctx, c)
			if err != nil {
				s.logger.Warn("could not cache alarm locally", "alarm", a.ID, "err", err)
			}
		} else if err != nil {
			s.logger.Warn("could not cache alarm locally", "alarm", a.ID, "err", err)
		}
	}
	for _, a := range local {
		if !seen[a.ID] {
			if err := s.local.Delete(ctx, a.ID); err != nil {
				s.logger.Warn("could not drop stale local alarm", "alarm", a.ID, "err", err)
			}
		}
	}
}

func (s *FallbackStore) Get(ctx context.Context, id string) (*models.Alarm, error) {
	if !s.Dirty() {
		alarm, err := s.remote.Get(ctx, id)
		if err == nil || !errors.Is(err, shared.ErrStoreUnavailable) {
			return alarm, err
		}
		s.markDirty("get", err)
	}
	return s.local.Get(ctx, id)
}

func (s *FallbackStore) Create(ctx context.Context, alarm *models.Alarm) error {
	if err := s.local.Create(ctx, alarm); err != nil {
		return err
	}
	if err := s.remote.Create(ctx, alarm.Clone()); err != nil && !errors.Is(err, shared.ErrDuplicateAlarm) {
		s.markDirty("create", err)
	}
	return nil
}

func (s *FallbackStore) Update(ctx context.Context, alarm *models.Alarm) error {
	if err := s.local.Update(ctx, alarm); err != nil {
		return err
	}
	if err := s.remote.Update(ctx, alarm.Clone()); err != nil {
		s.markDirty("update", err)
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, id string) error {
	if err := s.local.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, id); err != nil && !errors.Is(err, shared.ErrAlarmNotFound) {
		s.markDirty("delete", err)
	}
	return nil
}

// Sync pushes the local collection to the remote and clears the dirty flag on success.
func (s *FallbackStore) Sync(ctx context.Context) error {
	local, err := s.local.LoadAll(ctx)
	if err != nil {
		return err
	}
	remote, err := s.remote.LoadAll(ctx)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(local))
	for _, a := range local {
		keep[a.ID] = true
		c := a.Clone()
		err := s.remote.Update(ctx, c)
		if errors.Is(err, shared.ErrAlarmNotFound) {
			err = s.remote.Create(ctx, c)
		}
		if err != nil {
			return err
		}
	}
	for _, a := range remote {
		if keep[a.ID] {
			continue
		}
		if err := s.remote.Delete(ctx, a.ID); err != nil && !errors.Is(err, shared.ErrAlarmNotFound) {
			return err
		}
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	s.logger.Info("remote store synced", "alarms", len(local))
	return nil
}

func sortAlarms(alarms []*models.Alarm) {
	slices.SortFunc(alarms, func(a, b *models.Alarm) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
