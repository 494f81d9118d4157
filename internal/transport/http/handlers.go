package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Handler exposes the quiz engine over REST.
type Handler struct {
	answers     *app.AnswerService
	questions   *app.QuestionService
	leaderboard *app.LeaderboardService
	metrics     *app.MetricsService
	log         *zap.Logger
}

func NewHandler(
	answers *app.AnswerService,
	questions *app.QuestionService,
	leaderboard *app.LeaderboardService,
	metrics *app.MetricsService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		answers:     answers,
		questions:   questions,
		leaderboard: leaderboard,
		metrics:     metrics,
		log:         log,
	}
}

// NewRouter wires all routes, identity + rate-limit middleware, the
// websocket feed, and CORS.
func NewRouter(h *Handler, ws *WSHandler, limiter app.RateLimiter, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.HandleFunc("/ws/leaderboard", ws.ServeWS)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/quiz/answer",
		identity(rateLimited(limiter, "quiz/answer", log, http.HandlerFunc(h.SubmitAnswer)))).Methods(http.MethodPost)
	api.Handle("/quiz/next",
		identity(rateLimited(limiter, "quiz/next", log, http.HandlerFunc(h.NextQuestion)))).Methods(http.MethodGet)
	api.Handle("/quiz/metrics",
		identity(http.HandlerFunc(h.UserMetrics))).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/score", h.TopScores).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard/streak", h.TopStreaks).Methods(http.MethodGet)

	return cors.AllowAll().Handler(r)
}

type answerBody struct {
	SessionID      string  `json:"sessionId"`
	QuestionID     *int64  `json:"questionId"`
	Answer         *string `json:"answer"`
	StateVersion   *int    `json:"stateVersion"`
	IdempotencyKey string  `json:"answerIdempotencyKey"`
}

// SubmitAnswer handles POST /api/v1/quiz/answer.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	var body answerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.QuestionID == nil || body.Answer == nil || body.StateVersion == nil || body.IdempotencyKey == "" {
		writeError(w, http.StatusBadRequest,
			"missing or invalid: sessionId, questionId, answer, stateVersion, answerIdempotencyKey")
		return
	}

	outcome, err := h.answers.Process(r.Context(), domain.AnswerRequest{
		UserID:         userID,
		SessionID:      body.SessionID,
		QuestionID:     *body.QuestionID,
		Answer:         *body.Answer,
		StateVersion:   *body.StateVersion,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// NextQuestion handles GET /api/v1/quiz/next.
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	sessionID := r.URL.Query().Get("sessionId")

	next, err := h.questions.NextQuestion(r.Context(), userID, sessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// UserMetrics handles GET /api/v1/quiz/metrics.
func (h *Handler) UserMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.metrics.UserMetrics(r.Context(), userIDFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// TopScores handles GET /api/v1/leaderboard/score.
func (h *Handler) TopScores(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.TopScores(r.Context(), limitParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreEntries(entries))
}

// TopStreaks handles GET /api/v1/leaderboard/streak.
func (h *Handler) TopStreaks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.TopStreaks(r.Context(), limitParam(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streakEntries(entries))
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "state version mismatch; refresh and retry")
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "question not found")
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeError(w, http.StatusServiceUnavailable, "no questions available")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return app.MaxTopN
	}
	return n
}

type scoreEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	TotalScore int64  `json:"totalScore"`
	UpdatedAt  string `json:"updatedAt"`
}

type streakEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	MaxStreak int64  `json:"maxStreak"`
	UpdatedAt string `json:"updatedAt"`
}

func scoreEntries(entries []domain.RankedEntry) []scoreEntry {
	out := make([]scoreEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, scoreEntry{Rank: e.Rank, UserID: e.UserID, TotalScore: e.Value, UpdatedAt: e.UpdatedAt.UTC().Format(timeFormat)})
	}
	return out
}

func streakEntries(entries []domain.RankedEntry) []streakEntry {
	out := make([]streakEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, streakEntry{Rank: e.Rank, UserID: e.UserID, MaxStreak: e.Value, UpdatedAt: e.UpdatedAt.UTC().Format(timeFormat)})
	}
	return out
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
