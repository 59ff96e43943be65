package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string      `json:"token"`
	Expiration int64       `json:"expiration"`
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type verifyResponse struct {
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	Expiration int64       `json:"expiration"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
			WriteMessage(w, r, s.logger, http.StatusUnauthorized, "Username or password is incorrect")
			return
		}
		s.metrics.LoginsTotal.WithLabelValues("error").Inc()
		WriteMessage(w, r, s.logger, http.StatusInternalServerError, "internal error")
		return
	}

	s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	WriteJSONResponse(w, r, s.logger, http.StatusOK, loginResponse{
		Token:      res.Token,
		Expiration: res.ExpiresAt.Unix(),
		Username:   res.Username,
		Role:       res.Role,
	})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info(r.Context(), "registration request", "username", req.Username)

	_, err := s.users.Register(r.Context(), req.Username, req.Password, req.Email)
	switch {
	case err == nil:
		WriteMessage(w, r, s.logger, http.StatusOK, "Registration successful")
	case errors.Is(err, common.ErrorValidation):
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "Username, password, and email are required")
	case errors.Is(err, common.ErrorAlreadyExists):
		s.logger.Info(r.Context(), "registration rejected, username taken", "username", req.Username)
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "Username already exists")
	default:
		WriteMessage(w, r, s.logger, http.StatusInternalServerError, "internal error")
	}
}

// Verify echoes the caller's own claims.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.unauthorized(w, r)
		return
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, verifyResponse{
		Username:   claims.Username(),
		Role:       claims.Role,
		Expiration: claims.Expiration().Unix(),
	})
}
