package http

import (
	"net/http"
	"time"

	"bottega/internal/aggregate"
	"bottega/internal/core"
	"bottega/internal/log"
)

// defaultRangeDays is the span the dashboard chart opens with.
const defaultRangeDays = 30

type dashboardData struct {
	Totals aggregate.Totals
	Start  string
	End    string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	data := dashboardData{
		Start: today.AddDays(-(defaultRangeDays - 1)).String(),
		End:   today.String(),
	}

	totals, err := s.deps.Reports.Dashboard(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard totals failed", log.FieldError, err, log.FieldOperation, log.OpAggregate)
		s.renderFlash(w, r, "dashboard.html", data, &Flash{Kind: FlashError, Message: "Could not load totals."})
		return
	}
	data.Totals = totals
	s.render(w, r, "dashboard.html", data)
}
