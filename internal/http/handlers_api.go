package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"bottega/internal/aggregate"
	"bottega/internal/core"
	"bottega/internal/log"
)

// chartDataResponse is the body of GET /api/chart-data. Every series has
// one entry per label.
type chartDataResponse struct {
	Labels               []string      `json:"labels"`
	DailySales           []json.Number `json:"daily_sales"`
	DailyPending         []json.Number `json:"daily_pending"`
	DailyExpensesPaid    []json.Number `json:"daily_expenses_paid"`
	DailyExpensesPending []json.Number `json:"daily_expenses_pending"`
}

type monthlyResponse struct {
	Labels []string      `json:"labels"`
	Data   []json.Number `json:"data"`
}

// numbers encodes amounts as exact JSON numbers.
func numbers(ds []decimal.Decimal) []json.Number {
	out := make([]json.Number, len(ds))
	for i, d := range ds {
		out[i] = json.Number(d.String())
	}
	return out
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start_date"), q.Get("end_date")

	series, err := s.deps.Reports.RangeChart(r.Context(), start, end)
	if err != nil {
		if reason := aggregate.Reason(err); reason != "" {
			JSONError(http.StatusBadRequest, reason, err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Range chart failed",
			log.FieldStartDate, start, log.FieldEndDate, end, log.FieldError, err)
		JSONError(http.StatusInternalServerError, "internal", "could not load chart data").Write(w)
		return
	}

	NewResponse().JSON(chartDataResponse{
		Labels:               series.Labels,
		DailySales:           numbers(series.DailySales),
		DailyPending:         numbers(series.DailyPending),
		DailyExpensesPaid:    numbers(series.DailyExpensesPaid),
		DailyExpensesPending: numbers(series.DailyExpensesPending),
	}).Header("Cache-Control", "no-store").Write(w)
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(r.PathValue("kind"))
	if err != nil {
		JSONError(http.StatusNotFound, "unknown_kind", err.Error()).Write(w)
		return
	}

	series, err := s.deps.Reports.MonthlyChart(r.Context(), kind)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Monthly chart failed", log.FieldKind, string(kind), log.FieldError, err)
		JSONError(http.StatusInternalServerError, "internal", "could not load chart data").Write(w)
		return
	}
	labels := series.Labels
	if labels == nil {
		labels = []string{}
	}
	NewResponse().JSON(monthlyResponse{Labels: labels, Data: numbers(series.Data)}).
		Header("Cache-Control", "no-store").
		Write(w)
}
