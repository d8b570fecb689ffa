package store

import (
	"context"
	"errors"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/model"
)

const DefaultKey = "artist_scheduler_tasks"

// Store mirrors the task list into a single blob. Failures are logged and
// reported as booleans, the caller keeps its in-memory list either way.
type Store struct {
	blobs model.BlobRepository
	key   string
	log   lgr.L
}

func New(blobs model.BlobRepository, key string, logger lgr.L) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = lgr.NoOp
	}
	return &Store{blobs: blobs, key: key, log: logger}
}

func (s *Store) Key() string {
	return s.key
}

// LoadTasks returns false when nothing usable is stored.
func (s *Store) LoadTasks(ctx context.Context) ([]model.Task, bool) {
	data, err := s.blobs.FetchBlob(ctx, s.key)
	if err != nil {
		if errors.Is(err, model.ErrBlobNotFound) {
			s.log.Logf("[DEBUG] no stored tasks under %q", s.key)
		} else {
			s.log.Logf("[WARN] could not load tasks: %v", err)
		}
		return nil, false
	}

	tasks, err := Decode(data)
	if err != nil {
		s.log.Logf("[WARN] stored tasks under %q are unreadable, ignoring: %v", s.key, err)
		return nil, false
	}
	s.log.Logf("[DEBUG] loaded %d tasks from %q", len(tasks), s.key)
	return tasks, true
}

func (s *Store) SaveTasks(ctx context.Context, tasks []model.Task) bool {
	data, err := Encode(tasks)
	if err != nil {
		s.log.Logf("[ERROR] could not encode tasks: %v", err)
		return false
	}
	if err := s.blobs.SaveBlob(ctx, s.key, data); err != nil {
		s.log.Logf("[ERROR] could not save tasks: %v", err)
		return false
	}
	s.log.Logf("[DEBUG] saved %d tasks to %q", len(tasks), s.key)
	return true
}
