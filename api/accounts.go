package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/render"
	"github.com/bigyanadk07/BugTracker/store"
	"github.com/bigyanadk07/BugTracker/validate"
)

const (
	messageUserExists         = "User already exists"
	messageEmailTaken         = "Email already in use"
	messageInvalidCredentials = "Invalid email or password"
	messageUserNotFound       = "User not found"
)

// register creates a User account. The requested role is ignored.
func (s *Server) register(ctx *bugtracker.Context) error {
	return s.createAccount(ctx, false)
}

// adminRegister creates an account with the requested role.
func (s *Server) adminRegister(ctx *bugtracker.Context) error {
	return s.createAccount(ctx, true)
}

func (s *Server) createAccount(ctx *bugtracker.Context, honourRole bool) error {
	var payload registerPayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	role := bugtracker.RoleUser
	if honourRole {
		parsed, ok := auth.ParseRole(payload.Role)
		if !ok {
			return apperr.Validation("Role must be User, Tester, or Admin", nil)
		}
		role = parsed
	}

	reqCtx := ctx.Request.Context()
	email := normalizeEmail(payload.Email)
	if _, err := s.users.UserByEmail(reqCtx, email); err == nil {
		return apperr.BadRequest(messageUserExists, nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperr.Unexpected(messageServerFailure, err)
	}

	hash, err := s.hashPassword(payload.Password)
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	user, err := s.users.CreateUser(reqCtx, model.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, store.ErrConflict) {
		return apperr.BadRequest(messageUserExists, err)
	}
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	token, err := s.issue(user.Principal())
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	ctx.Logger().Info("user registered",
		slog.String("target_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return ctx.JSON(http.StatusCreated, render.OK(accountOf(*user, token)))
}

func (s *Server) login(ctx *bugtracker.Context) error {
	var payload loginPayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	user, err := s.users.UserByEmail(ctx.Request.Context(), normalizeEmail(payload.Email))
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Unauthenticated(messageInvalidCredentials, nil)
	}
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, payload.Password)
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}
	if !ok {
		return apperr.Unauthenticated(messageInvalidCredentials, nil)
	}

	token, err := s.issue(user.Principal())
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}
	return ctx.JSON(http.StatusOK, render.OK(accountOf(*user, token)))
}

func (s *Server) profile(ctx *bugtracker.Context) error {
	user, err := s.users.UserByID(ctx.Request.Context(), principal(ctx).ID)
	if err != nil {
		return storeError(err, messageUserNotFound)
	}
	return ctx.JSON(http.StatusOK, render.OK(user))
}

// updateProfile changes name, email or password of the caller. A fresh
// token is returned with the account.
func (s *Server) updateProfile(ctx *bugtracker.Context) error {
	var payload profilePayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	var patch model.UserPatch
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		patch.Name = &name
	}
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		patch.Email = &email
	}
	if payload.Password != nil {
		hash, err := s.hashPassword(*payload.Password)
		if err != nil {
			return apperr.Unexpected(messageServerFailure, err)
		}
		patch.PasswordHash = &hash
	}

	user, err := s.users.UpdateUser(ctx.Request.Context(), principal(ctx).ID, patch)
	if errors.Is(err, store.ErrConflict) {
		return apperr.BadRequest(messageEmailTaken, err)
	}
	if err != nil {
		return storeError(err, messageUserNotFound)
	}

	token, err := s.issue(user.Principal())
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	ctx.Logger().Info("profile updated", slog.String("target_id", user.ID))
	return ctx.JSON(http.StatusOK, render.OK(accountOf(*user, token)))
}
