package http

import (
	"errors"
	"net/http"
	"time"

	"bottega/internal/auth"
	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/services"
)

type salesData struct {
	Sales []core.Sale
	Today string
}

type expensesData struct {
	Expenses []core.Expense
	Today    string
}

func today() string {
	return time.Now().UTC().Format(core.DateLayout)
}

// userMessage is the flash text for a failed write. Validation errors are
// shown as-is; anything else is logged.
func (s *Server) userMessage(r *http.Request, err error, fallback string, attrs ...any) string {
	if services.IsValidation(err) {
		return "Invalid input: " + err.Error() + "."
	}
	s.logger.ErrorContext(r.Context(), fallback, append(attrs, log.FieldError, err)...)
	return fallback
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.deps.Ledger.ListSales(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List sales failed", log.FieldError, err, log.FieldOperation, log.OpList)
		s.renderFlash(w, r, "sales.html", salesData{Today: today()}, &Flash{Kind: FlashError, Message: "Could not load sales."})
		return
	}
	s.render(w, r, "sales.html", salesData{Sales: sales, Today: today()})
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	in, err := ParseSaleForm(postForm(r))
	if err != nil {
		SeeOther("/sales").Error("Invalid input: " + err.Error() + ".").Write(w)
		return
	}
	sess := auth.FromContext(r.Context())
	if _, err := s.deps.Ledger.CreateSale(r.Context(), in, sess.UserID); err != nil {
		SeeOther("/sales").Error(s.userMessage(r, err, "Could not save the sale.", log.FieldKind, core.KindSale)).Write(w)
		return
	}
	SeeOther("/sales").Success("Sale added.").Write(w)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Ledger.DeleteSale(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrNotFound):
		SeeOther("/sales").Error("Sale not found.").Write(w)
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Delete sale failed", log.FieldRecordID, id, log.FieldError, err)
		SeeOther("/sales").Error("Error deleting sale.").Write(w)
	default:
		SeeOther("/sales").Success("Sale deleted successfully.").Write(w)
	}
}

func (s *Server) handleUpdateSaleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.deps.Ledger.UpdateSaleStatus(r.Context(), id, postForm(r).Get("status"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		SeeOther("/sales").Error("Sale not found.").Write(w)
	case errors.Is(err, core.ErrInvalidStatus):
		SeeOther("/sales").Error("Invalid status.").Write(w)
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Update sale status failed", log.FieldRecordID, id, log.FieldError, err)
		SeeOther("/sales").Error("Error updating sale.").Write(w)
	default:
		SeeOther("/sales").Success("Sale status updated.").Write(w)
	}
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.deps.Ledger.ListExpenses(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List expenses failed", log.FieldError, err, log.FieldOperation, log.OpList)
		s.renderFlash(w, r, "expenses.html", expensesData{Today: today()}, &Flash{Kind: FlashError, Message: "Could not load expenses."})
		return
	}
	s.render(w, r, "expenses.html", expensesData{Expenses: expenses, Today: today()})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := ParseExpenseForm(postForm(r))
	if err != nil {
		SeeOther("/expenses").Error("Invalid input: " + err.Error() + ".").Write(w)
		return
	}
	sess := auth.FromContext(r.Context())
	if _, err := s.deps.Ledger.CreateExpense(r.Context(), e, sess.UserID); err != nil {
		SeeOther("/expenses").Error(s.userMessage(r, err, "Could not save the expense.", log.FieldKind, core.KindExpense)).Write(w)
		return
	}
	SeeOther("/expenses").Success("Expense added.").Write(w)
}

// handleDeleteExpense is idempotent: deleting a missing expense still
// reports success.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Ledger.DeleteExpense(r.Context(), id); err != nil && !errors.Is(err, services.ErrNotFound) {
		s.logger.ErrorContext(r.Context(), "Delete expense failed", log.FieldRecordID, id, log.FieldError, err)
		SeeOther("/expenses").Error("Error deleting expense.").Write(w)
		return
	}
	SeeOther("/expenses").Success("Expense deleted.").Write(w)
}
