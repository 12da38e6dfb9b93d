/*
handlers_test.go - HTTP tests for budget, line, occurrence, forecast and
holiday endpoints, run against a SQLite :memory: store.
*/
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestRouter(t *testing.T) (*chi.Mux, *Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, calendar.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Clock = func() time.Time { return time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC) }
	return NewRouter(h), h
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createBudget(t *testing.T, router http.Handler, body string) BudgetDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/budgets", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[BudgetDTO](t, rec)
}

func createLine(t *testing.T, router http.Handler, budgetID, body string) LineDTO {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/budgets/"+budgetID+"/lines", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[LineDTO](t, rec)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// BUDGETS
// =============================================================================

func TestCreateBudget(t *testing.T) {
	router, _ := newTestRouter(t)

	b := createBudget(t, router, `{"name":"Home","country":"dk","starting_balance":"10000.50"}`)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "DK", b.Country)
	assert.True(t, b.StartingBalance.Equal(dec("10000.50")))

	rec := do(t, router, http.MethodGet, "/api/budgets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]BudgetDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestCreateBudget_DefaultsCountry(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	assert.Equal(t, "DK", b.Country)
}

func TestCreateBudget_Errors(t *testing.T) {
	router, _ := newTestRouter(t)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", `{"name":`, http.StatusBadRequest},
		{"missing name", `{"country":"DK"}`, http.StatusBadRequest},
		{"unsupported country", `{"name":"Home","country":"SE"}`, http.StatusUnprocessableEntity},
		{"sub-minor balance", `{"name":"Home","starting_balance":"1.001"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/budgets", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			errResp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestGetBudget_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/budgets/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// LINES AND PATTERNS
// =============================================================================

func TestCreateLine_AndGetBudget(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)

	line := createLine(t, router, b.ID, `{
		"name": "Rent",
		"kind": "expense",
		"patterns": [{"amount": "-8000", "start_date": "2026-01-01",
			"rule": {"type": "monthly_fixed", "day_of_month": 1, "bank_day_adjustment": "next"}}]
	}`)
	assert.NotEmpty(t, line.ID)
	require.Len(t, line.Patterns, 1)
	assert.NotEmpty(t, line.Patterns[0].ID)
	assert.Equal(t, "monthly_fixed", line.Patterns[0].Rule.Type)

	rec := do(t, router, http.MethodGet, "/api/budgets/"+b.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[BudgetDTO](t, rec)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Rent", got.Lines[0].Name)
	assert.Equal(t, "expense", got.Lines[0].Kind)
	assert.True(t, got.Lines[0].Patterns[0].Amount.Equal(dec("-8000")))
}

func TestCreateLine_Errors(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	createLine(t, router, b.ID, `{"name":"Rent","patterns":[]}`)

	cases := []struct {
		name     string
		budgetID string
		body     string
		want     int
	}{
		{"duplicate name", b.ID, `{"name":"Rent","patterns":[]}`, http.StatusConflict},
		{"unknown budget", "nope", `{"name":"Gym","patterns":[]}`, http.StatusNotFound},
		{"missing name", b.ID, `{"patterns":[]}`, http.StatusBadRequest},
		{"bad rule", b.ID, `{"name":"Gym","patterns":[{"amount":"-1","start_date":"2026-01-01","rule":{"type":"weekly","weekday":9}}]}`, http.StatusBadRequest},
		{"unknown rule type", b.ID, `{"name":"Gym","patterns":[{"amount":"-1","start_date":"2026-01-01","rule":{"type":"lunar"}}]}`, http.StatusBadRequest},
		{"once with end", b.ID, `{"name":"Gym","patterns":[{"amount":"-1","start_date":"2026-01-01","end_date":"2026-02-01"}]}`, http.StatusBadRequest},
		{"bad date", b.ID, `{"name":"Gym","patterns":[{"amount":"-1","start_date":"1/1/2026"}]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/budgets/"+tc.budgetID+"/lines", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAddPattern_SalaryRaise(t *testing.T) {
	// GIVEN: a salary of 30,000 ending in May
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	line := createLine(t, router, b.ID, `{"name":"Salary","kind":"income","patterns":[
		{"amount":"30000","start_date":"2025-01-01","end_date":"2026-05-31","rule":{"type":"monthly_fixed","day_of_month":25}}]}`)

	// WHEN: a raise to 34,000 is appended from June
	rec := do(t, router, http.MethodPost, "/api/lines/"+line.ID+"/patterns",
		`{"amount":"34000","start_date":"2026-06-01","rule":{"type":"monthly_fixed","day_of_month":25}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[factory.PatternJSON](t, rec)
	assert.NotEmpty(t, added.ID)

	// THEN: occurrences switch amount at the boundary
	rec = do(t, router, http.MethodGet, "/api/lines/"+line.ID+"/occurrences?from=2026-04-01&to=2026-07-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[OccurrencesResponse](t, rec)
	require.Len(t, resp.Occurrences, 4)
	assert.True(t, resp.Occurrences[1].Amount.Equal(dec("30000")))
	assert.True(t, resp.Occurrences[2].Amount.Equal(dec("34000")))
	assert.Equal(t, calendar.NewDate(2026, time.June, 25), resp.Occurrences[2].Date)
	assert.True(t, resp.IncomeTotal.Equal(dec("128000")))

	rec = do(t, router, http.MethodPost, "/api/lines/nope/patterns", `{"amount":"1","start_date":"2026-06-01"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLine(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	line := createLine(t, router, b.ID, `{"name":"Rent","patterns":[]}`)

	rec := do(t, router, http.MethodDelete, "/api/lines/"+line.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/lines/"+line.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// OCCURRENCES
// =============================================================================

func TestGetLineOccurrences_WeeklyFriday(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	line := createLine(t, router, b.ID, `{"name":"Groceries","patterns":[
		{"amount":"-1200","start_date":"2026-01-01","rule":{"type":"weekly","weekday":4}}]}`)

	rec := do(t, router, http.MethodGet, "/api/lines/"+line.ID+"/occurrences?from=2026-02-01&to=2026-02-28", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[OccurrencesResponse](t, rec)

	var days []int
	for _, o := range resp.Occurrences {
		days = append(days, o.Date.Day)
		assert.Equal(t, line.ID, o.LineID)
	}
	assert.Equal(t, []int{6, 13, 20, 27}, days)
	assert.True(t, resp.ExpenseTotal.Equal(dec("-4800")))
}

func TestGetBudgetOccurrences_MergesLinesInDateOrder(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	createLine(t, router, b.ID, `{"name":"Salary","patterns":[
		{"amount":"25000","start_date":"2026-01-01","rule":{"type":"monthly_bank_day","bank_day_number":1,"from_end":true}}]}`)
	createLine(t, router, b.ID, `{"name":"Rent","patterns":[
		{"amount":"-8000","start_date":"2026-01-01","rule":{"type":"monthly_fixed","day_of_month":1}}]}`)

	rec := do(t, router, http.MethodGet, "/api/budgets/"+b.ID+"/occurrences?from=2026-01-01&to=2026-02-28", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[OccurrencesResponse](t, rec)

	require.Len(t, resp.Occurrences, 4)
	want := []struct {
		date calendar.Date
		name string
	}{
		{calendar.NewDate(2026, time.January, 1), "Rent"},
		{calendar.NewDate(2026, time.January, 30), "Salary"},
		{calendar.NewDate(2026, time.February, 1), "Rent"},
		{calendar.NewDate(2026, time.February, 27), "Salary"},
	}
	for i, w := range want {
		assert.Equal(t, w.date, resp.Occurrences[i].Date, "occurrence %d", i)
		assert.Equal(t, w.name, resp.Occurrences[i].LineName, "occurrence %d", i)
	}
	assert.True(t, resp.IncomeTotal.Equal(dec("50000")))
	assert.True(t, resp.ExpenseTotal.Equal(dec("-16000")))
}

func TestOccurrences_BadRange(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)

	for _, q := range []string{"", "?from=2026-01-01", "?from=2026-02-01&to=2026-01-01", "?from=jan&to=feb"} {
		rec := do(t, router, http.MethodGet, "/api/budgets/"+b.ID+"/occurrences"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// =============================================================================
// FORECAST
// =============================================================================

func TestGetForecast_EndToEnd(t *testing.T) {
	// GIVEN: 10,000 on hand, 25,000 in and 8,000 out on the 1st
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home","starting_balance":"10000"}`)
	createLine(t, router, b.ID, `{"name":"Salary","patterns":[
		{"amount":"25000","start_date":"2026-01-01","rule":{"type":"monthly_fixed","day_of_month":1}}]}`)
	createLine(t, router, b.ID, `{"name":"Rent","patterns":[
		{"amount":"-8000","start_date":"2026-01-01","rule":{"type":"monthly_fixed","day_of_month":1}}]}`)

	// WHEN: forecasting three months from January
	rec := do(t, router, http.MethodGet, "/api/budgets/"+b.ID+"/forecast?months=3&start=2026-01", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fc := decode[ForecastDTO](t, rec)

	// THEN: balances chain 27,000 / 44,000 / 61,000
	require.Len(t, fc.Projections, 3)
	for i, want := range []string{"27000", "44000", "61000"} {
		assert.True(t, fc.Projections[i].EndBalance.Equal(dec(want)), "month %d: %s", i, fc.Projections[i].EndBalance)
	}
	assert.Equal(t, "2026-01", fc.Projections[0].Month)
	assert.Equal(t, "2026-03", fc.Projections[2].Month)

	require.NotNil(t, fc.LowestPoint)
	assert.Equal(t, "2026-01", fc.LowestPoint.Month)

	require.NotNil(t, fc.NextLargeExpense)
	assert.Equal(t, "Rent", fc.NextLargeExpense.LineName)
	assert.True(t, fc.NextLargeExpense.Amount.Equal(dec("-8000")))
}

func TestGetForecast_DefaultsToClockMonth(t *testing.T) {
	router, _ := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)

	rec := do(t, router, http.MethodGet, "/api/budgets/"+b.ID+"/forecast", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fc := decode[ForecastDTO](t, rec)
	require.Len(t, fc.Projections, defaultForecastMonths)
	assert.Equal(t, "2026-01", fc.Projections[0].Month)
	assert.Nil(t, fc.NextLargeExpense)
}

func TestGetForecast_Errors(t *testing.T) {
	router, h := newTestRouter(t)
	b := createBudget(t, router, `{"name":"Home"}`)
	h.MaxForecastMonths = 24

	cases := []struct {
		path string
		want int
	}{
		{"/api/budgets/" + b.ID + "/forecast?months=0", http.StatusBadRequest},
		{"/api/budgets/" + b.ID + "/forecast?months=25", http.StatusBadRequest},
		{"/api/budgets/" + b.ID + "/forecast?months=x", http.StatusBadRequest},
		{"/api/budgets/" + b.ID + "/forecast?start=2026-13", http.StatusBadRequest},
		{"/api/budgets/nope/forecast", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(t, router, http.MethodGet, tc.path, "")
		assert.Equal(t, tc.want, rec.Code, tc.path)
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestListHolidays(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/holidays/dk/2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	holidays := decode[[]HolidayDTO](t, rec)
	require.Len(t, holidays, 11)
	assert.Equal(t, calendar.NewDate(2026, time.January, 1), holidays[0].Date)
	assert.Equal(t, "Nytårsdag", holidays[0].Name)

	rec = do(t, router, http.MethodGet, "/api/holidays/XX/2026", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/holidays/DK/next", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCountries(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/countries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[[]string](t, rec), "DK")
}
