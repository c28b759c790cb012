package http

import (
	"fmt"
	"net/http"

	"fina/internal/core"
	"fina/internal/ledger"
	"fina/internal/log"
)

// deleteResult reports the transactions removed along with a wallet or category.
type deleteResult struct {
	DeletedTransactions []core.Transaction `json:"deleted_transactions"`
}

func newDeleteResult(removed []core.Transaction) deleteResult {
	if removed == nil {
		removed = []core.Transaction{}
	}
	return deleteResult{DeletedTransactions: removed}
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	kind, err := ParseWalletKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	wallets, err := s.svc.ListWallets(r.Context(), userID, kind)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpRead)
	if !ok {
		return
	}
	wallet, err := s.svc.GetWallet(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func decodeWallet(w http.ResponseWriter, r *http.Request) (ledger.WalletInput, error) {
	var in ledger.WalletInput
	if err := DecodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)
	return in, nil
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	in, err := decodeWallet(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	wallet, err := s.svc.CreateWallet(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/users/%d/wallets/%d", userID, wallet.ID)).
		Data(wallet).
		Write(w)
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpUpdate)
	if !ok {
		return
	}
	in, err := decodeWallet(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	wallet, err := s.svc.UpdateWallet(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpDelete)
	if !ok {
		return
	}
	removed, err := s.svc.DeleteWallet(r.Context(), userID, id, QueryBool(r.URL.Query(), "cascade"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeleteResult(removed))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	typ, err := ParseCategoryType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	categories, err := s.svc.ListCategories(r.Context(), userID, typ)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func decodeCategory(w http.ResponseWriter, r *http.Request) (ledger.CategoryInput, error) {
	var in ledger.CategoryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)
	return in, nil
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	in, err := decodeCategory(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	category, err := s.svc.CreateCategory(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Location(fmt.Sprintf("/api/users/%d/categories/%d", userID, category.ID)).
		Data(category).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpUpdate)
	if !ok {
		return
	}
	in, err := decodeCategory(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	category, err := s.svc.UpdateCategory(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.userAndID(w, r, log.OpDelete)
	if !ok {
		return
	}
	removed, err := s.svc.DeleteCategory(r.Context(), userID, id, QueryBool(r.URL.Query(), "cascade"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeleteResult(removed))
}
