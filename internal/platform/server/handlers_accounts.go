package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type accountBody struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Balance   string     `json:"balance"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func accountToBody(a wallet.Account) accountBody {
	return accountBody{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   wallet.FormatCents(a.Balance),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		DeletedAt: a.DeletedAt,
	}
}

type pageBody[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

func pageToBody[D, T any](p wallet.Page[D], conv func(D) T) pageBody[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageBody[T]{
		Data:        items,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
	}
}

type accountCreateRequest struct {
	Name    string           `json:"name"`
	Balance *decimal.Decimal `json:"balance"`
}

func (s *Server) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	var req accountCreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var cents int64
	if req.Balance != nil {
		var err error
		cents, err = wallet.ParseAmount(*req.Balance)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	account, err := s.accounts.Create(r.Context(), req.Name, cents)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, accountToBody(account))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) handleAccountList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := wallet.AccountFilter{
		Name:           q.Get("name"),
		CreatedAt:      q.Get("created_at"),
		IncludeDeleted: q.Get("include_deleted") == "true",
		Page:           queryInt(r, "page", 1),
		Limit:          queryInt(r, "limit", 10),
	}
	page, err := s.accounts.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pageToBody(page, accountToBody))
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountToBody(account))
}

type accountUpdateRequest struct {
	Name    *string          `json:"name"`
	Balance *decimal.Decimal `json:"balance"`
}

func (s *Server) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	var req accountUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	upd := wallet.AccountUpdate{Name: req.Name}
	if req.Balance != nil {
		cents, err := wallet.ParseAmount(*req.Balance)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		upd.Balance = &cents
	}
	account, err := s.accounts.Update(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountToBody(account))
}

func (s *Server) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, accountToBody(account))
}

type fundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleAccountFund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	cents, err := wallet.ParseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.accounts.Fund(r.Context(), r.PathValue("id"), cents)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"account_id": r.PathValue("id"),
		"balance":    wallet.FormatCents(balance),
	})
}
