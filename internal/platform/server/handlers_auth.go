package server

import (
	"net/http"

	"github.com/brwallet/pix-wallet-go/internal/platform/auth"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.metrics.ObserveLogin("invalid")
		s.writeError(w, r, wallet.E(wallet.CodeLoginValidationError, map[string]any{"reason": "malformed body"}))
		return
	}
	resp, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch wallet.CodeOf(err) {
		case wallet.CodeLoginValidationError:
			s.metrics.ObserveLogin("invalid")
		case wallet.CodeLoginUnauthorized:
			s.metrics.ObserveLogin("denied")
		default:
			s.metrics.ObserveLogin("error")
		}
		s.writeError(w, r, err)
		return
	}
	s.metrics.ObserveLogin("ok")
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}
