// Package handler exposes the grading service over HTTP: a teacher
// persona that runs grading sessions and a student persona that looks
// up published results.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akshayhegde/gradescan/internal/llm"
	"github.com/akshayhegde/gradescan/internal/llm/prompts"
	"github.com/akshayhegde/gradescan/internal/model"
	"github.com/akshayhegde/gradescan/internal/report"
	"github.com/akshayhegde/gradescan/internal/store"
)

const reportPrefix = "Class_Exam_Report"

// Evaluator grades one student's sheet against the session masters.
type Evaluator interface {
	EvaluateSheet(ctx context.Context, questionPaper, answerKey, studentSheet model.Attachment, info prompts.Data) (*model.ExamResult, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	llm   Evaluator

	// One grading session per process: the target deployment is a
	// single operator. Guarded because HTTP handlers run concurrently.
	mu      sync.Mutex
	session *gradingSession
}

// gradingSession pairs the exam context with the master documents every
// student sheet is graded against.
type gradingSession struct {
	Config        model.SessionConfig
	QuestionPaper model.Attachment
	AnswerKey     model.Attachment
}

// New creates a new Handler.
func New(s *store.Store, l Evaluator) *Handler {
	return &Handler{store: s, llm: l}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.handleStartSession)
		r.Get("/session", h.handleGetSession)
		r.Delete("/session", h.handleEndSession)

		r.Post("/evaluate", h.handleEvaluate)

		r.Post("/results", h.handleSaveResult)
		r.Get("/results", h.handleListResults)
		r.Delete("/results", h.handleClearResults)
		r.Get("/results/report", h.handleReport)

		r.Get("/students/results", h.handleStudentHistory)
		r.Get("/students/results/latest", h.handleStudentLatest)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	model.SessionConfig
	QuestionPaper model.Attachment `json:"questionPaper"`
	AnswerKey     model.Attachment `json:"answerKey"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubjectCode == "" || req.ExamName == "" || req.ClassName == "" || req.Semester == "" {
		http.Error(w, "subjectCode, examName, className, and semester are required", http.StatusBadRequest)
		return
	}
	if req.QuestionPaper.Base64 == "" || req.AnswerKey.Base64 == "" {
		http.Error(w, "master question paper and answer key are required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.session = &gradingSession{
		Config:        req.SessionConfig,
		QuestionPaper: req.QuestionPaper,
		AnswerKey:     req.AnswerKey,
	}
	h.mu.Unlock()

	slog.Info("grading session started",
		"subject", req.SubjectCode,
		"exam", req.ExamName,
		"class", req.ClassName,
		"semester", req.Semester)
	writeJSON(w, http.StatusCreated, req.SessionConfig)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession()
	if sess == nil {
		http.Error(w, "no active grading session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Config)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.session = nil
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

type evaluateRequest struct {
	StudentName string           `json:"studentName"`
	USN         string           `json:"usn"`
	AnswerSheet model.Attachment `json:"answerSheet"`
}

// handleEvaluate grades one sheet against the session masters and
// returns the enriched result WITHOUT saving it: the teacher reviews
// the grade first and saves via POST /api/results.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession()
	if sess == nil {
		http.Error(w, "no active grading session", http.StatusConflict)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.USN == "" {
		http.Error(w, "usn is required", http.StatusBadRequest)
		return
	}
	if req.AnswerSheet.Base64 == "" {
		http.Error(w, "answer sheet is required", http.StatusBadRequest)
		return
	}

	result, err := h.llm.EvaluateSheet(r.Context(), sess.QuestionPaper, sess.AnswerKey, req.AnswerSheet, prompts.Data{
		SubjectCode: sess.Config.SubjectCode,
		ExamName:    sess.Config.ExamName,
	})
	if err != nil {
		slog.Error("evaluation failed", "usn", req.USN, "error", err)
		if errors.Is(err, llm.ErrBadResponse) {
			http.Error(w, "the evaluation model returned an unusable response, try again", http.StatusBadGateway)
			return
		}
		http.Error(w, "evaluation failed", http.StatusBadGateway)
		return
	}

	// Manually entered details win over whatever the model transcribed.
	result.StudentName = req.StudentName
	result.USN = req.USN
	result.ClassName = sess.Config.ClassName
	result.Semester = sess.Config.Semester
	result.SubjectCode = sess.Config.SubjectCode
	result.ExamName = sess.Config.ExamName
	result.TeacherName = sess.Config.TeacherName

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	var result model.ExamResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.Save(result); err != nil {
		if errors.Is(err, store.ErrInvalidResult) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("save result failed", "usn", result.USN, "error", err)
		http.Error(w, "could not save results", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListResults returns the teacher's session table: results scoped
// to the active session, or every stored result when no session is open.
func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.scopedResults()
	if err != nil {
		slog.Error("list results failed", "error", err)
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleClearResults(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(); err != nil {
		slog.Error("clear results failed", "error", err)
		http.Error(w, "could not clear results", http.StatusInternalServerError)
		return
	}
	slog.Info("cleared all stored results")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	results, err := h.scopedResults()
	if err != nil {
		slog.Error("report failed", "error", err)
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	doc := report.BuildClassReport(results, now)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(reportPrefix, now)+`"`)
	_, _ = w.Write([]byte(doc))
}

func (h *Handler) handleStudentHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	usn := r.URL.Query().Get("usn")
	if usn == "" {
		http.Error(w, "usn is required", http.StatusBadRequest)
		return
	}

	history, err := h.store.FindHistory(name, usn)
	if err != nil {
		slog.Error("history lookup failed", "usn", usn, "error", err)
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []model.ExamResult{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleStudentLatest(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	usn := r.URL.Query().Get("usn")
	if usn == "" {
		http.Error(w, "usn is required", http.StatusBadRequest)
		return
	}

	latest, err := h.store.FindLatest(name, usn)
	if err != nil {
		slog.Error("latest lookup failed", "usn", usn, "error", err)
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "no result found for this name and USN", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *Handler) currentSession() *gradingSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	sess := *h.session
	return &sess
}

func (h *Handler) scopedResults() ([]model.ExamResult, error) {
	if sess := h.currentSession(); sess != nil {
		return h.store.FindBySession(
			sess.Config.SubjectCode,
			sess.Config.ExamName,
			sess.Config.ClassName,
			sess.Config.Semester,
		)
	}
	return h.store.GetAll()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
