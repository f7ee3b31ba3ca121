package store

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/akshayhegde/gradescan/internal/model"
)

var foldCaser = cases.Fold()

// FindHistory returns all results for a student, newest first. The USN
// must match after trimming and case folding; the name matches when the
// stored name contains the query as a folded substring, which tolerates
// partial names and minor variation. An empty name matches everything.
func (s *Store) FindHistory(name, usn string) ([]model.ExamResult, error) {
	results, err := s.GetAll()
	if err != nil {
		return nil, err
	}

	wantUSN := foldCaser.String(strings.TrimSpace(usn))
	wantName := foldCaser.String(strings.TrimSpace(name))

	var matched []model.ExamResult
	for _, r := range results {
		if foldCaser.String(r.USN) != wantUSN {
			continue
		}
		if !strings.Contains(foldCaser.String(r.StudentName), wantName) {
			continue
		}
		matched = append(matched, r)
	}

	// Records without a timestamp sort as oldest.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})
	return matched, nil
}

// FindLatest returns the student's most recent result, or nil when the
// student has none.
func (s *Store) FindLatest(name, usn string) (*model.ExamResult, error) {
	history, err := s.FindHistory(name, usn)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return &history[0], nil
}

// FindBySession returns the results for one exam session. All four
// context fields must match exactly as stored: they come from session
// configuration, not free-typed lookup input.
func (s *Store) FindBySession(subjectCode, examName, className, semester string) ([]model.ExamResult, error) {
	results, err := s.GetAll()
	if err != nil {
		return nil, err
	}
	var matched []model.ExamResult
	for _, r := range results {
		if r.SubjectCode == subjectCode &&
			r.ExamName == examName &&
			r.ClassName == className &&
			r.Semester == semester {
			matched = append(matched, r)
		}
	}
	return matched, nil
}
