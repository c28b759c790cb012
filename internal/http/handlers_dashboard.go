package http

import (
	"net/http"

	"fina/internal/log"
)

// handleBalances returns the assets scorecard.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	balances, err := s.svc.ComputeBalances(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// handleReport returns the income/expense dashboard for ?from&to&wallet.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	q, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	report, err := s.svc.ComputeIncomeExpenseReport(r.Context(), userID, q)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	q, err := ParseReportQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	series, err := s.svc.ComputeCashflow(r.Context(), userID, q)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
