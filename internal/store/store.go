// Package store persists graded exam results as a single serialized
// list under one fixed key of an injected storage backend, and serves
// derived views over that list.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akshayhegde/gradescan/internal/model"
	"github.com/akshayhegde/gradescan/internal/storage"
)

// storageKey is the one backend key the store owns. The name predates
// this service; keeping it means earlier blobs stay readable.
const storageKey = "exam_evaluator_db"

var (
	// ErrStorage marks a failure of the underlying backend (write
	// refused, database gone). Callers may prompt for a retry.
	ErrStorage = errors.New("result storage unavailable")
	// ErrCorruptState marks a stored blob that no longer parses.
	// The store never deletes such data on its own.
	ErrCorruptState = errors.New("stored results are corrupt")
	// ErrInvalidResult marks a result rejected before it was stored.
	ErrInvalidResult = errors.New("invalid exam result")
)

// Store owns the persisted result list. All methods run synchronously
// on the calling goroutine; the backend write is a single whole-blob
// replace, so there is no partial-failure state.
type Store struct {
	backend storage.Backend
	now     func() time.Time
}

// New creates a store over the given backend.
func New(backend storage.Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Save upserts a result. Identity is the composite of USN
// (case-insensitive), subject code, and exam name, so one student keeps
// independent records per exam while a re-grade of the same exam
// replaces the previous record. The timestamp is assigned here; any
// caller-supplied value is overwritten.
func (s *Store) Save(result model.ExamResult) error {
	if err := validate(result); err != nil {
		return err
	}
	if result.USN == "" {
		// Stored anyway: an empty USN collides with every other
		// empty-USN record for the same exam on upsert.
		slog.Warn("saving result without USN",
			"student", result.StudentName,
			"subject", result.SubjectCode,
			"exam", result.ExamName)
	}

	existing, err := s.GetAll()
	if err != nil {
		return err
	}

	kept := existing[:0]
	for _, r := range existing {
		if sameIdentity(r, result) {
			continue
		}
		kept = append(kept, r)
	}

	result.Timestamp = s.now().UnixMilli()
	kept = append(kept, result)

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := s.backend.Set(storageKey, data); err != nil {
		return fmt.Errorf("%w: write results: %v", ErrStorage, err)
	}
	return nil
}

// GetAll returns every stored result in the order the blob holds them.
// That order is insertion order reshuffled by upserts, not
// chronological; chronological views are derived by the query methods.
func (s *Store) GetAll() ([]model.ExamResult, error) {
	data, ok, err := s.backend.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: read results: %v", ErrStorage, err)
	}
	if !ok {
		return []model.ExamResult{}, nil
	}
	var results []model.ExamResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if results == nil {
		results = []model.ExamResult{}
	}
	return results, nil
}

// ClearAll deletes the entire stored list. Irreversible.
func (s *Store) ClearAll() error {
	if err := s.backend.Delete(storageKey); err != nil {
		return fmt.Errorf("%w: clear results: %v", ErrStorage, err)
	}
	return nil
}

// sameIdentity reports whether two results describe the same student's
// sheet for the same exam: USN compares case-insensitively, subject
// code and exam name exactly.
func sameIdentity(a, b model.ExamResult) bool {
	return strings.EqualFold(a.USN, b.USN) &&
		a.SubjectCode == b.SubjectCode &&
		a.ExamName == b.ExamName
}

// validate rejects results whose per-question marks exceed the maximum.
// Totals and question ordering remain the producer's responsibility.
func validate(result model.ExamResult) error {
	for _, q := range result.Questions {
		if q.MarksAwarded > q.MaxMarks {
			return fmt.Errorf("%w: question %s awarded %v of %v marks",
				ErrInvalidResult, q.QuestionNumber, q.MarksAwarded, q.MaxMarks)
		}
	}
	return nil
}
