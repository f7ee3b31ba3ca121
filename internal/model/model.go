package model

// QuestionStatus is the grading verdict for a single answer.
type QuestionStatus string

const (
	// StatusCorrect means the answer matched the key.
	StatusCorrect QuestionStatus = "Correct"
	// StatusIncorrect means the answer did not match the key.
	StatusIncorrect QuestionStatus = "Incorrect"
	// StatusPartial means the answer earned partial credit.
	StatusPartial QuestionStatus = "Partial"
)

// IsValid reports whether s is one of the known grading verdicts.
func (s QuestionStatus) IsValid() bool {
	switch s {
	case StatusCorrect, StatusIncorrect, StatusPartial:
		return true
	}
	return false
}

// GradedQuestion is one graded answer inside an ExamResult. It is
// produced by the evaluator and never mutated afterwards.
type GradedQuestion struct {
	QuestionNumber string         `json:"questionNumber"`
	QuestionText   string         `json:"questionText"`
	StudentAnswer  string         `json:"studentAnswer"`
	CorrectAnswer  string         `json:"correctAnswer"`
	MarksAwarded   float64        `json:"marksAwarded"`
	MaxMarks       float64        `json:"maxMarks"`
	Status         QuestionStatus `json:"status"`
	Feedback       string         `json:"feedback"`
}

// ExamResult is the root persisted record: one student's graded sheet
// for one exam. Student and exam-context fields are optional; an empty
// string means "unknown". The JSON field names match the layout already
// present in stored data, so older records without context fields still
// decode.
type ExamResult struct {
	StudentName string `json:"studentName,omitempty"`
	USN         string `json:"usn,omitempty"`

	ClassName   string `json:"className,omitempty"`
	Semester    string `json:"semester,omitempty"`
	SubjectCode string `json:"subjectCode,omitempty"`
	ExamName    string `json:"examName,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`

	// Timestamp is epoch milliseconds, assigned by the store at save
	// time. A caller-supplied value is overwritten.
	Timestamp int64 `json:"timestamp,omitempty"`

	TotalQuestions     int              `json:"totalQuestions"`
	TotalMaxMarks      float64          `json:"totalMaxMarks"`
	TotalMarksObtained float64          `json:"totalMarksObtained"`
	AccuracyPercentage float64          `json:"accuracyPercentage"`
	Summary            string           `json:"summary"`
	Questions          []GradedQuestion `json:"questions"`
}

// SessionConfig holds the exam-context fields a teacher sets when
// opening a grading session. They are stamped onto every result saved
// during the session.
type SessionConfig struct {
	TeacherName   string `json:"teacherName"`
	SubjectCode   string `json:"subjectCode"`
	ClassName     string `json:"className"`
	Semester      string `json:"semester"`
	ExamName      string `json:"examName"`
	TotalStudents int    `json:"totalStudents,omitempty"`
}

// Attachment is an uploaded document (question paper, answer key, or a
// student's answer sheet) as base64 data plus its MIME type.
type Attachment struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}
