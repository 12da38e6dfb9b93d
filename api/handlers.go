/*
handlers.go - HTTP API handlers for the cash-flow engine

PURPOSE:
  Exposes budgets, their lines and patterns, occurrence queries, the
  month-by-month forecast and the holiday calendar over REST. Handles
  HTTP request/response and JSON, and delegates to budget, forecast and
  calendar.

ENDPOINTS:
  Budgets:
    GET    /api/budgets                       List budgets
    POST   /api/budgets                       Create budget
    GET    /api/budgets/{id}                  Budget with lines and patterns
    POST   /api/budgets/{id}/lines            Create line with patterns
    GET    /api/budgets/{id}/occurrences      Every line merged over ?from&to
    GET    /api/budgets/{id}/forecast         Projection over ?months=N[&start=YYYY-MM]

  Lines:
    DELETE /api/lines/{id}                    Delete line
    POST   /api/lines/{id}/patterns           Append a pattern
    GET    /api/lines/{id}/occurrences        One line merged over ?from&to

  Calendar:
    GET    /api/countries                     Supported countries
    GET    /api/holidays/{country}/{year}     Public holidays

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert JSON to domain types (factory for rules and patterns)
  3. Call the store / merger / projector
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Budget or line not found
  - 409: Duplicate line name
  - 422: Country has no holiday calendar
  - 500: Internal errors (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo budgets
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/recurrence"
)

const defaultForecastMonths = 12

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    budget.Store
	Calendar *calendar.Calendar
	Rules    *factory.RuleFactory
	Logger   *slog.Logger

	// DefaultCountry is used when a new budget names none.
	DefaultCountry    calendar.Country
	MaxForecastMonths int

	// Clock supplies "today" to forecasts without an explicit start.
	Clock func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with Danish defaults and a five year
// forecast cap.
func NewHandler(store budget.Store, cal *calendar.Calendar, logger *slog.Logger) *Handler {
	if cal == nil {
		cal = calendar.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:             store,
		Calendar:          cal,
		Rules:             factory.NewRuleFactory(),
		Logger:            logger.With("component", "api"),
		DefaultCountry:    calendar.Denmark,
		MaxForecastMonths: 60,
		Clock:             time.Now,
	}
}

func (h *Handler) mergerFor(country calendar.Country) *budget.Merger {
	return budget.NewMerger(recurrence.NewExpander(h.Calendar, country))
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns all budgets without their lines.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Store.ListBudgets(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list budgets", err)
		return
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBudget creates a budget for a supported country.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	country := calendar.Country(strings.ToUpper(req.Country))
	if country == "" {
		country = h.DefaultCountry
	}
	if err := h.Calendar.Supports(country); err != nil {
		h.writeDomainError(w, r, "Unsupported country", err)
		return
	}

	balance, err := budget.FromDecimal(req.StartingBalance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starting_balance", err)
		return
	}

	b, err := h.Store.SaveBudget(r.Context(), budget.Budget{
		Name:            req.Name,
		Country:         country,
		StartingBalance: balance,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to create budget", err)
		return
	}

	h.Logger.Info("budget created", "budget_id", b.ID, "country", b.Country)
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

// GetBudget returns a budget with its lines and patterns.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.Store.GetBudget(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Budget not found", err)
		return
	}
	lines, err := h.Store.ListLines(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list lines", err)
		return
	}

	dto := toBudgetDTO(b)
	dto.Lines = make([]LineDTO, len(lines))
	for i, l := range lines {
		dto.Lines[i] = toLineDTO(h.Rules, l)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// LINE HANDLERS
// =============================================================================

// CreateLine adds a line with its patterns to a budget.
func (h *Handler) CreateLine(w http.ResponseWriter, r *http.Request) {
	budgetID := chi.URLParam(r, "id")

	var req CreateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	line := budget.Line{
		BudgetID: budgetID,
		Name:     req.Name,
		Kind:     budget.LineKind(req.Kind),
		Patterns: make([]budget.AmountPattern, 0, len(req.Patterns)),
	}
	for i, pj := range req.Patterns {
		p, err := h.Rules.PatternFromJSON(pj)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid pattern %d", i), err)
			return
		}
		line.Patterns = append(line.Patterns, p)
	}

	saved, err := h.Store.SaveLine(r.Context(), line)
	if err != nil {
		h.writeDomainError(w, r, "Failed to create line", err)
		return
	}

	h.Logger.Info("line created", "budget_id", budgetID, "line_id", saved.ID, "patterns", len(saved.Patterns))
	writeJSON(w, http.StatusCreated, toLineDTO(h.Rules, saved))
}

// DeleteLine removes a line and its patterns.
func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteLine(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPattern appends one pattern to a line, e.g. a salary raise.
func (h *Handler) AddPattern(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")

	var pj factory.PatternJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Rules.PatternFromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pattern", err)
		return
	}

	saved, err := h.Store.AddPattern(r.Context(), lineID, p)
	if err != nil {
		h.writeDomainError(w, r, "Failed to add pattern", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Rules.PatternToJSON(saved))
}

// =============================================================================
// OCCURRENCE HANDLERS
// =============================================================================

// GetLineOccurrences merges one line over [from, to].
func (h *Handler) GetLineOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	line, err := h.Store.GetLine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Line not found", err)
		return
	}
	b, err := h.Store.GetBudget(r.Context(), line.BudgetID)
	if err != nil {
		h.writeDomainError(w, r, "Budget not found", err)
		return
	}

	occs, err := h.mergerFor(b.Country).MergeLine(line, from, to)
	if err != nil {
		h.writeDomainError(w, r, "Failed to expand line", err)
		return
	}

	tagged := make([]taggedOccurrence, len(occs))
	for i, o := range occs {
		tagged[i] = taggedOccurrence{Occurrence: o, line: line}
	}
	writeJSON(w, http.StatusOK, toOccurrencesResponse(from, to, tagged))
}

// GetBudgetOccurrences merges every line of a budget over [from, to].
// Same-date occurrences keep line order.
func (h *Handler) GetBudgetOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	id := chi.URLParam(r, "id")
	b, err := h.Store.GetBudget(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Budget not found", err)
		return
	}
	lines, err := h.Store.ListLines(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list lines", err)
		return
	}

	merger := h.mergerFor(b.Country)
	var tagged []taggedOccurrence
	for _, line := range lines {
		occs, err := merger.MergeLine(line, from, to)
		if err != nil {
			h.writeDomainError(w, r, "Failed to expand line", err)
			return
		}
		for _, o := range occs {
			tagged = append(tagged, taggedOccurrence{Occurrence: o, line: line})
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].Date.Before(tagged[j].Date)
	})

	writeJSON(w, http.StatusOK, toOccurrencesResponse(from, to, tagged))
}

type taggedOccurrence struct {
	budget.Occurrence
	line budget.Line
}

func toOccurrencesResponse(from, to calendar.Date, tagged []taggedOccurrence) OccurrencesResponse {
	plain := make([]budget.Occurrence, len(tagged))
	dtos := make([]OccurrenceDTO, len(tagged))
	for i, t := range tagged {
		plain[i] = t.Occurrence
		dtos[i] = OccurrenceDTO{
			Date:     t.Date,
			Amount:   t.Amount.Decimal(),
			LineID:   t.line.ID,
			LineName: t.line.Name,
		}
	}
	income, expense := budget.Totals(plain)
	return OccurrencesResponse{
		From:         from,
		To:           to,
		IncomeTotal:  income.Decimal(),
		ExpenseTotal: expense.Decimal(),
		Occurrences:  dtos,
	}
}

// =============================================================================
// FORECAST HANDLER
// =============================================================================

// GetForecast projects a budget's balance over ?months=N months starting
// at ?start=YYYY-MM, or the current month.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	months := defaultForecastMonths
	if s := r.URL.Query().Get("months"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > h.MaxForecastMonths {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", h.MaxForecastMonths), err)
			return
		}
		months = n
	}

	var start calendar.Month
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse("2006-01", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be YYYY-MM", err)
			return
		}
		start = calendar.Month{Year: t.Year(), Month: t.Month()}
	}

	b, err := h.Store.GetBudget(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Budget not found", err)
		return
	}
	lines, err := h.Store.ListLines(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list lines", err)
		return
	}

	projector := forecast.NewProjector(h.mergerFor(b.Country))
	projector.Clock = h.Clock

	res, err := projector.Project(r.Context(), forecast.Input{
		StartingBalance: b.StartingBalance,
		Lines:           lines,
		MonthCount:      months,
		StartMonth:      start,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to project budget", err)
		return
	}

	h.Logger.Debug("forecast computed", "budget_id", id, "months", months, "lines", len(lines))
	writeJSON(w, http.StatusOK, toForecastDTO(b, res))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListCountries returns the countries with a holiday calendar.
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Calendar.Countries())
}

// ListHolidays returns a country's public holidays for one year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	country := calendar.Country(strings.ToUpper(chi.URLParam(r, "country")))
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	holidays, err := h.Calendar.Holidays(year, country)
	if err != nil {
		h.writeDomainError(w, r, "Unsupported country", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date, Name: hol.Name, Weekday: hol.Date.Weekday().String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(r *http.Request) (calendar.Date, calendar.Date, error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return calendar.Date{}, calendar.Date{}, errors.New("from and to are required")
	}
	from, err := calendar.ParseDate(q.Get("from"))
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("from: %w", err)
	}
	to, err := calendar.ParseDate(q.Get("to"))
	if err != nil {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return calendar.Date{}, calendar.Date{}, errors.New("to must not be before from")
	}
	return from, to, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrUnsupportedCountry):
		return http.StatusUnprocessableEntity
	case budget.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, budget.ErrDuplicateName):
		return http.StatusConflict
	case budget.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
