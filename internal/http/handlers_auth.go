package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Anshbajaj69/Expense-Sharing/internal/auth"
	"github.com/Anshbajaj69/Expense-Sharing/internal/core"
	"github.com/Anshbajaj69/Expense-Sharing/internal/log"
	"github.com/Anshbajaj69/Expense-Sharing/internal/middleware/authn"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondWithValidation(w, validationFields(err, s.translator))
		return
	}

	ctx := r.Context()
	user, err := s.users.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, core.ErrInvalidUsername),
			errors.Is(err, core.ErrInvalidEmail):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(ctx, "Signup failed",
				log.FieldComponent, log.ComponentAuth,
				log.FieldOperation, log.OpSignup,
				log.FieldError, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.ErrorContext(ctx, "Token generation failed",
			log.FieldComponent, log.ComponentAuth,
			log.FieldUserID, user.ID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	s.setSessionCookie(w, token)

	slog.InfoContext(ctx, "User registered",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpSignup,
		log.FieldUserID, user.ID,
		log.FieldUsername, user.Username)

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    toUserResponse(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondWithValidation(w, validationFields(err, s.translator))
		return
	}

	ctx := r.Context()
	user, err := s.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid login credentials. Please try again")
		return
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.ErrorContext(ctx, "Token generation failed",
			log.FieldComponent, log.ComponentAuth,
			log.FieldUserID, user.ID,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	s.setSessionCookie(w, token)

	slog.InfoContext(ctx, "User logged in",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID,
		log.FieldUsername, user.Username)

	respondWithJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// handleListUsers returns a page of the user directory, excluding the caller.
// start is 1-based; count is clamped to 1..10.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil && r.FormValue("count") != "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request count parameter")
		return
	}
	start, err := strconv.Atoi(r.FormValue("start"))
	if err != nil && r.FormValue("start") != "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request start parameter")
		return
	}

	const (
		minOffset = 0
		minLimit  = 1
		maxLimit  = 10
	)

	start--
	if count > maxLimit || count < minLimit {
		count = maxLimit
	}
	if start < minOffset {
		start = minOffset
	}

	ctx := r.Context()
	users, err := s.store.ListUsers(ctx, authn.GetUserID(ctx), start, count)
	if err != nil {
		slog.ErrorContext(ctx, "User listing failed",
			log.FieldComponent, log.ComponentAuth,
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"users": out,
	})
}
