package store

import (
	"encoding/json"
	"testing"
)

func seedStudent(t *testing.T, s *Store, name, usn, subject, exam string) {
	t.Helper()
	r := testResult(usn, subject, exam)
	r.StudentName = name
	if err := s.Save(r); err != nil {
		t.Fatalf("seedStudent %s/%s: %v", name, usn, err)
	}
}

func TestFindHistoryUSNMatching(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000)
	seedStudent(t, s, "Jane Doe", "1RV19CS001", "CS501", "Midterm1")

	tests := []struct {
		name      string
		queryUSN  string
		wantCount int
	}{
		{"exact", "1RV19CS001", 1},
		{"lowercase", "1rv19cs001", 1},
		{"mixed case", "1Rv19Cs001", 1},
		{"surrounding whitespace", "  1rv19cs001  ", 1},
		{"different usn", "1RV19CS002", 0},
		{"prefix only", "1RV19CS", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := s.FindHistory("Jane", tt.queryUSN)
			if err != nil {
				t.Fatalf("FindHistory: %v", err)
			}
			if len(history) != tt.wantCount {
				t.Errorf("expected %d matches, got %d", tt.wantCount, len(history))
			}
		})
	}
}

func TestFindHistoryNameSubstring(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000)
	seedStudent(t, s, "Jane Doe", "1RV19CS001", "CS501", "Midterm1")

	tests := []struct {
		name      string
		queryName string
		wantCount int
	}{
		{"first name lowercase", "jane", 1},
		{"last name", "Doe", 1},
		{"full name", "Jane Doe", 1},
		{"empty matches all", "", 1},
		{"with whitespace", "  jane  ", 1},
		{"not a substring", "Janet", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := s.FindHistory(tt.queryName, "1RV19CS001")
			if err != nil {
				t.Fatalf("FindHistory: %v", err)
			}
			if len(history) != tt.wantCount {
				t.Errorf("expected %d matches, got %d", tt.wantCount, len(history))
			}
		})
	}
}

func TestFindHistoryOrdering(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000) // successive saves get 1000, 2000, 3000

	seedStudent(t, s, "Jane Doe", "101", "CS501", "Midterm1")
	seedStudent(t, s, "Jane Doe", "101", "CS501", "Midterm2")
	seedStudent(t, s, "Jane Doe", "101", "CS502", "Final")

	history, err := s.FindHistory("Jane", "101")
	if err != nil {
		t.Fatalf("FindHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i-1].Timestamp < history[i].Timestamp {
			t.Errorf("history not newest-first at index %d: %d < %d",
				i, history[i-1].Timestamp, history[i].Timestamp)
		}
	}
	if history[0].ExamName != "Final" {
		t.Errorf("expected most recent exam first, got %q", history[0].ExamName)
	}
}

func TestFindHistoryMissingTimestampSortsOldest(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000)
	seedStudent(t, s, "Jane Doe", "101", "CS501", "Midterm1")

	// A record written before the store stamped timestamps.
	legacy := testResult("101", "CS501", "Legacy")
	legacy.Timestamp = 0
	all, _ := s.GetAll()
	all = append(all, legacy)
	data, err := json.Marshal(all)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := s.backend.Set(storageKey, data); err != nil {
		t.Fatalf("seed legacy record: %v", err)
	}

	history, err := s.FindHistory("", "101")
	if err != nil {
		t.Fatalf("FindHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[len(history)-1].ExamName != "Legacy" {
		t.Errorf("expected record without timestamp to sort last, got %q",
			history[len(history)-1].ExamName)
	}
}

func TestFindLatest(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000)

	latest, err := s.FindLatest("Jane", "101")
	if err != nil {
		t.Fatalf("FindLatest on empty store: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil result for unknown student")
	}

	seedStudent(t, s, "Jane Doe", "101", "CS501", "Midterm1")
	seedStudent(t, s, "Jane Doe", "101", "CS501", "Midterm2")

	latest, err = s.FindLatest("Jane", "101")
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a result")
	}
	if latest.ExamName != "Midterm2" {
		t.Errorf("expected most recent exam Midterm2, got %q", latest.ExamName)
	}
}

func TestFindBySessionExactness(t *testing.T) {
	s := newTestStore(t)
	setClock(s, 1000)

	base := testResult("101", "CS501", "Midterm1")
	base.ClassName = "CSE-A"
	base.Semester = "5"
	if err := s.Save(base); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := testResult("102", "CS501", "Midterm1")
	other.ClassName = "CSE-A"
	other.Semester = "6" // differs only in semester
	if err := s.Save(other); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := []struct {
		name                           string
		subject, exam, class, semester string
		wantCount                      int
	}{
		{"exact match", "CS501", "Midterm1", "CSE-A", "5", 1},
		{"other semester", "CS501", "Midterm1", "CSE-A", "6", 1},
		{"wrong subject", "CS502", "Midterm1", "CSE-A", "5", 0},
		{"case matters", "cs501", "Midterm1", "CSE-A", "5", 0},
		{"wrong exam", "CS501", "Final", "CSE-A", "5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.FindBySession(tt.subject, tt.exam, tt.class, tt.semester)
			if err != nil {
				t.Fatalf("FindBySession: %v", err)
			}
			if len(results) != tt.wantCount {
				t.Errorf("expected %d results, got %d", tt.wantCount, len(results))
			}
		})
	}
}
