// Package filestore persists statistics snapshots as JSON documents on local disk
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"surveygen/domain/core"
	"surveygen/domain/responsestats"
	"surveygen/internal/errors"
	"surveygen/ports"
)

const documentExt = ".json"

// StatsStore implements StatsRepository with one file per session
type StatsStore struct {
	basePath string
}

// NewStatsStore creates the store, creating basePath if needed
func NewStatsStore(basePath string) (*StatsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.StorageError("failed to create stats directory "+basePath, err)
	}
	return &StatsStore{basePath: basePath}, nil
}

// Save writes the snapshot, replacing any previous document of the session.
// The file is written to a temporary name first and renamed into place
func (s *StatsStore) Save(ctx context.Context, stats *responsestats.SurveyStats) error {
	if stats == nil || stats.SessionID == "" {
		return errors.InvalidInput("stats snapshot has no session id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return errors.StorageError("failed to encode survey stats", err)
	}

	filePath, err := s.keyToPath(string(stats.SessionID))
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, ".stats-*")
	if err != nil {
		return errors.StorageError("failed to create temporary file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.StorageError("failed to write "+tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.StorageError("failed to close "+tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return errors.StorageError("failed to move stats into "+filePath, err)
	}
	return nil
}

// Load reads the snapshot of a session
func (s *StatsStore) Load(ctx context.Context, sessionID core.SessionID) (*responsestats.SurveyStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath, err := s.keyToPath(string(sessionID))
	if err != nil {
		return nil, err
	}
	return readDocument(filePath, sessionID.String())
}

// List returns the snapshots of a survey URL, most recently updated first.
// An empty url lists every survey; limit <= 0 means no limit
func (s *StatsStore) List(ctx context.Context, url string, limit int) ([]*responsestats.SurveyStats, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, errors.StorageError("failed to read stats directory", err)
	}

	var out []*responsestats.SurveyStats
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, documentExt) {
			continue
		}
		stats, err := readDocument(filepath.Join(s.basePath, name), strings.TrimSuffix(name, documentExt))
		if err != nil {
			return nil, err
		}
		if url != "" && stats.URL != url {
			continue
		}
		out = append(out, stats)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func readDocument(filePath, key string) (*responsestats.SurveyStats, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("survey stats " + key)
		}
		return nil, errors.StorageError("failed to read "+filePath, err)
	}
	var stats responsestats.SurveyStats
	if err := stats.Scan(raw); err != nil {
		return nil, errors.StorageError("failed to decode "+filePath, err)
	}
	return &stats, nil
}

// keyToPath converts a session id to its document path, rejecting ids that
// would escape the base directory
func (s *StatsStore) keyToPath(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", errors.InvalidInput("invalid session id " + key)
	}
	return filepath.Join(s.basePath, key+documentExt), nil
}

var _ ports.StatsRepository = (*StatsStore)(nil)
