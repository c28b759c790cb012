package http

import (
	"fmt"
	"net/http"

	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/log"
)

// pairResponse is the body returned for a transfer or debt.
type pairResponse struct {
	PairID string             `json:"pair_id"`
	Legs   []core.Transaction `json:"legs"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	filter, page, err := ParseTransactionQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	result, err := s.svc.ListTransactions(r.Context(), userID, filter, page)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpRead)
	if !ok {
		return
	}
	tx, err := s.svc.GetTransaction(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func decodeTransaction(w http.ResponseWriter, r *http.Request) (ledger.TransactionInput, error) {
	var in ledger.TransactionInput
	if err := DecodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Description = sanitizeInput(in.Description)
	return in, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.svc.ValidateAndCreateTransaction(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/users/%d/transactions/%d", userID, tx.ID)).
		Data(tx).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpUpdate)
	if !ok {
		return
	}
	in, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	tx, err := s.svc.UpdateTransaction(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction removes a transaction, and its other leg when it
// belongs to a pair. The removed rows are returned.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpDelete)
	if !ok {
		return
	}
	removed, err := s.svc.DeleteTransaction(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeleteResult(removed))
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var in ledger.PairInput
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpTransfer, err)
		return
	}
	in.Destination = sanitizeInput(in.Destination)
	in.Description = sanitizeInput(in.Description)

	legA, legB, err := s.svc.CreateTransferOrDebt(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, log.OpTransfer, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(pairResponse{PairID: legA.PairID, Legs: []core.Transaction{legA, legB}}).
		Write(w)
}
