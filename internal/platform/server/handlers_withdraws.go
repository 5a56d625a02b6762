package server

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type pixBody struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

type withdrawBody struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	Amount        string     `json:"amount"`
	Method        string     `json:"method"`
	Pix           pixBody    `json:"pix"`
	Scheduled     bool       `json:"scheduled"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	State         string     `json:"state"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func withdrawToBody(w wallet.Withdrawal) withdrawBody {
	return withdrawBody{
		ID:            w.ID,
		AccountID:     w.AccountID,
		Amount:        wallet.FormatCents(w.Amount),
		Method:        w.Method,
		Pix:           pixBody{Type: w.Pix.Type, Key: w.Pix.Key},
		Scheduled:     w.Scheduled,
		ScheduledFor:  w.ScheduledFor,
		State:         string(w.State),
		FailureReason: w.FailureReason,
		CreatedAt:     w.CreatedAt,
		ProcessedAt:   w.ProcessedAt,
	}
}

type withdrawCreateRequest struct {
	Method   string           `json:"method"`
	Amount   *decimal.Decimal `json:"amount"`
	Pix      pixBody          `json:"pix"`
	Schedule *time.Time       `json:"schedule"`
}

type withdrawCreateResponse struct {
	withdrawBody
	Warning *errorBody `json:"warning,omitempty"`
}

// handleWithdrawCreate answers 201 for a plain creation. A scheduled
// request whose amount exceeds the current balance still succeeds, with
// the POSSIBLE_INSUFFICIENT_BALANCE advisory attached and the status the
// warning code maps to.
func (s *Server) handleWithdrawCreate(w http.ResponseWriter, r *http.Request) {
	var req withdrawCreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var cents int64
	if req.Amount != nil {
		var err error
		cents, err = wallet.ParseAmount(*req.Amount)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	view, err := s.engine.CreateWithdraw(r.Context(), wallet.WithdrawRequest{
		AccountID: r.PathValue("id"),
		Method:    req.Method,
		Amount:    cents,
		PixType:   req.Pix.Type,
		PixKey:    req.Pix.Key,
		Schedule:  req.Schedule,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := withdrawCreateResponse{withdrawBody: withdrawToBody(view.Withdrawal)}
	status := http.StatusCreated
	if view.Warning != "" {
		warn := wallet.E(view.Warning, nil)
		resp.Warning = &errorBody{ErrorCode: string(warn.Code), Message: warn.Message}
		status = warn.Status()
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleWithdrawGet(w http.ResponseWriter, r *http.Request) {
	withdrawal, err := s.engine.GetWithdraw(r.Context(), r.PathValue("id"), r.PathValue("withdraw_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, withdrawToBody(withdrawal))
}

func (s *Server) handleWithdrawList(w http.ResponseWriter, r *http.Request) {
	page, err := s.engine.ListWithdraws(r.Context(), r.PathValue("id"),
		queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pageToBody(page, withdrawToBody))
}
