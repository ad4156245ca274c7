package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"talentmatch/internal/errors"
	"talentmatch/internal/types"
)

// FileStore persists the talent pool as an ordered JSON array in a
// single file. Every mutation rewrites the whole file through a
// temp-file rename, and all mutations are serialized behind one mutex,
// so concurrent updates cannot interleave partial writes.
//
// Reads are cached until a mutation or an external file change (see
// Watcher) invalidates the cache.
type FileStore struct {
	path   string
	logger *errors.Logger

	mu         sync.Mutex
	cache      []types.Record
	cacheValid bool
}

// NewFileStore creates a store backed by the JSON file at path. The
// file does not need to exist yet; a missing pool reads as empty.
func NewFileStore(path string, logger *errors.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Invalidate drops the read cache. Called by the file watcher when the
// pool file changes underneath the process.
func (s *FileStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheValid = false
}

// LoadAll returns all pool records in file order. Missing and corrupt
// files read as an empty pool; only transient I/O failures surface as
// errors.
func (s *FileStore) LoadAll(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	return cloneRecords(records), nil
}

// Size returns the number of records currently in the pool. Used by
// health and stats reporting; errors read as zero.
func (s *FileStore) Size(ctx context.Context) int {
	records, err := s.LoadAll(ctx)
	if err != nil {
		return 0
	}
	return len(records)
}

// Append adds a record to the end of the pool.
func (s *FileStore) Append(ctx context.Context, rec types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}

	records = append(records, rec)
	return s.writeLocked(records)
}

// Update overwrites the given fields on the record addressed by ref and
// returns the updated record. A record found through the email fallback
// gets its missing id backfilled from ref in the same write. Fields not
// named in fields are left untouched.
func (s *FileStore) Update(ctx context.Context, ref Ref, fields map[string]any) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	idx := resolve(records, ref)
	if idx < 0 {
		return nil, errors.NewNotFoundError(
			errors.ErrCodeCandidateNotFound,
			"candidate not found in talent pool",
			nil,
		).WithContext("id", ref.ID).WithContext("email", ref.Email)
	}

	// Mutate a copy, not the cached record: if the write fails the
	// cache must keep serving what is actually on disk.
	rec := records[idx].Clone()
	if heal(rec, ref) && s.logger != nil {
		s.logger.Info("Backfilled missing candidate id",
			"id", ref.ID,
			"email", rec.String(types.KeyEmail))
	}

	for key, value := range fields {
		rec[key] = value
	}

	updated := make([]types.Record, len(records))
	copy(updated, records)
	updated[idx] = rec

	if err := s.writeLocked(updated); err != nil {
		return nil, err
	}

	return rec.Clone(), nil
}

// FindByMeetingID returns the first record whose meeting_id equals
// token. Missing pool and unknown token both report not found.
func (s *FileStore) FindByMeetingID(ctx context.Context, token string) (types.Record, error) {
	records, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.String(types.KeyMeetingID) == token && token != "" {
			return rec, nil
		}
	}

	return nil, errors.NewNotFoundError(
		errors.ErrCodeInterviewNotFound,
		"no interview found for token",
		nil,
	).WithContext("token", token)
}

// loadLocked reads and parses the pool file. Caller holds s.mu.
func (s *FileStore) loadLocked() ([]types.Record, error) {
	if s.cacheValid {
		return s.cache, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			if s.logger != nil {
				s.logger.Debug("Talent pool file missing, reading as empty", "path", s.path)
			}
			s.cache = nil
			s.cacheValid = true
			return nil, nil
		}
		return nil, errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to read talent pool file",
			err,
		).WithContext("path", s.path)
	}

	var records []types.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		if s.logger != nil {
			s.logger.Warn("Talent pool file is not a valid JSON array, reading as empty",
				"path", s.path,
				"error", err.Error())
		}
		s.cache = nil
		s.cacheValid = true
		return nil, nil
	}

	s.cache = records
	s.cacheValid = true
	return records, nil
}

// writeLocked persists records atomically. Caller holds s.mu.
func (s *FileStore) writeLocked(records []types.Record) error {
	if records == nil {
		records = []types.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to encode talent pool",
			err,
		)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to create temp file for talent pool write",
			err,
		).WithContext("dir", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to write talent pool temp file",
			err,
		).WithContext("path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to flush talent pool temp file",
			err,
		).WithContext("path", tmpName)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewStoreError(
			errors.ErrCodeStoreUnavailable,
			"failed to replace talent pool file",
			err,
		).WithContext("path", s.path)
	}

	s.cache = records
	s.cacheValid = true
	return nil
}

func cloneRecords(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
