// Package api exposes the HTTP handlers for the Productivy backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AkremHaddad/Productivy-sub000/internal/auth"
	"github.com/AkremHaddad/Productivy-sub000/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	accounts  *domain.Accounts
	tracker   *domain.Tracker
	summaries *domain.Summaries
	projects  *domain.Projects
	boards    *domain.Boards
	sessions  auth.Config
}

// NewHandler builds a Handler.
func NewHandler(accounts *domain.Accounts, tracker *domain.Tracker, summaries *domain.Summaries, projects *domain.Projects, boards *domain.Boards, sessions auth.Config) *Handler {
	return &Handler{
		accounts:  accounts,
		tracker:   tracker,
		summaries: summaries,
		projects:  projects,
		boards:    boards,
		sessions:  sessions,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.logout)

	mux.HandleFunc("POST /api/activity", h.setActivity)
	mux.HandleFunc("GET /api/activity/current", h.currentActivity)
	mux.HandleFunc("POST /api/activity/heartbeat", h.heartbeat)
	mux.HandleFunc("POST /api/activity/offline", h.markOffline)

	mux.HandleFunc("GET /api/charts/daily", h.dailyChart)
	mux.HandleFunc("GET /api/charts/hourly", h.hourlyChart)

	mux.HandleFunc("GET /api/productive-time/today", h.productiveToday)
	mux.HandleFunc("POST /api/productive-time/add", h.addProductiveMinute)

	h.registerProjectRoutes(mux)
	h.registerBoardRoutes(mux)

	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate ensures request correctness.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView exposes account details.
type UserView struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "conflict", "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if !h.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusCreated, UserView{UserID: user.ID.String(), Email: user.Email, Name: user.Name})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	if !h.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusOK, UserView{UserID: user.ID.String(), Email: user.Email, Name: user.Name})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// The auth middleware skips /api/auth/*, so recover the session from the
	// cookie here. A logout without a usable session still clears the cookie.
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if claims, err := auth.Parse(cookie.Value, h.sessions); err == nil {
			_ = h.tracker.MarkOffline(r.Context(), claims.UserID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startSession(w http.ResponseWriter, user *domain.User) bool {
	token, err := auth.Issue(user.ID, user.Email, h.sessions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.sessions.TTL),
	})
	return true
}

// SetActivityRequest is the payload for POST /api/activity.
type SetActivityRequest struct {
	Activity string `json:"activity"`
}

// ActivityView is the response for activity reads and writes.
type ActivityView struct {
	Activity string `json:"activity"`
	Online   bool   `json:"online"`
}

func (h *Handler) setActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	var req SetActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Activity) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "activity is required")
		return
	}

	tag, err := h.tracker.SetActivity(r.Context(), claims.UserID, req.Activity)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTag) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ActivityView{Activity: string(tag), Online: true})
}

func (h *Handler) currentActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	current, err := h.tracker.Current(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ActivityView{Activity: string(current.Activity), Online: current.Online})
}

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	if err := h.tracker.Heartbeat(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markOffline(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	if err := h.tracker.MarkOffline(r.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DailySummaryResponse is the fixed schema for GET /api/charts/daily.
type DailySummaryResponse struct {
	Date    string                 `json:"date"`
	Summary []domain.IntervalGroup `json:"summary"`
}

func (h *Handler) dailyChart(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	day, ok := parseDate(w, r)
	if !ok {
		return
	}

	summary, err := h.summaries.Daily(r.Context(), claims.UserID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DailySummaryResponse{Date: day.Format("2006-01-02"), Summary: summary})
}

// HourlyCountView is one row of the hourly chart.
type HourlyCountView struct {
	Hour     int    `json:"hour"`
	Activity string `json:"activity"`
	Minutes  int    `json:"minutes"`
}

// HourlyChartResponse is the response for GET /api/charts/hourly.
type HourlyChartResponse struct {
	Date  string            `json:"date"`
	Hours []HourlyCountView `json:"hours"`
}

func (h *Handler) hourlyChart(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	day, ok := parseDate(w, r)
	if !ok {
		return
	}

	counts, err := h.summaries.Hourly(r.Context(), claims.UserID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	hours := make([]HourlyCountView, 0, len(counts))
	for _, count := range counts {
		hours = append(hours, HourlyCountView{Hour: count.Hour, Activity: string(count.Activity), Minutes: count.Minutes})
	}
	writeJSON(w, http.StatusOK, HourlyChartResponse{Date: day.Format("2006-01-02"), Hours: hours})
}

// ProductiveTimeResponse reports the day's accrued working minutes.
type ProductiveTimeResponse struct {
	Minutes int `json:"minutes"`
}

func (h *Handler) productiveToday(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	minutes, err := h.tracker.ProductiveToday(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ProductiveTimeResponse{Minutes: minutes})
}

func (h *Handler) addProductiveMinute(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r)
	if !ok {
		return
	}

	minutes, err := h.tracker.AddWorkingMinute(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ProductiveTimeResponse{Minutes: minutes})
}

func mustClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return nil, false
	}
	return claims, true
}

func parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing date parameter")
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "record not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
