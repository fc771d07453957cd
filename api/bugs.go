package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/query"
	"github.com/bigyanadk07/BugTracker/render"
	"github.com/bigyanadk07/BugTracker/store"
	"github.com/bigyanadk07/BugTracker/validate"
)

const (
	messageBugNotFound   = "Bug not found"
	messageBugBadID      = "Bug not found with this ID"
	messageBugRemoved    = "Bug removed successfully"
	messageListFailed    = "Server error while fetching bugs"
	messageServerFailure = "Server Error"
)

func (s *Server) listBugs(ctx *bugtracker.Context) error {
	plan := query.Translate(ctx.QueryValues())
	reqCtx := ctx.Request.Context()

	bugs, err := s.bugs.FindMany(reqCtx, plan)
	if err != nil {
		return apperr.Unexpected(messageListFailed, err)
	}
	total, err := s.bugs.Count(reqCtx, plan.Filter)
	if err != nil {
		return apperr.Unexpected(messageListFailed, err)
	}

	names, err := s.lookupPeople(reqCtx, bugs, nil)
	if err != nil {
		return apperr.Unexpected(messageListFailed, err)
	}

	var data any
	if len(plan.Fields) > 0 {
		docs := make([]map[string]any, 0, len(bugs))
		for _, bug := range bugs {
			docs = append(docs, plan.Project(names.document(bug)))
		}
		data = docs
	} else {
		views := make([]bugView, 0, len(bugs))
		for _, bug := range bugs {
			views = append(views, names.bug(bug))
		}
		data = views
	}

	return ctx.JSON(http.StatusOK, render.Page(data, len(bugs), total, render.Pagination{
		Page:       plan.Page,
		Limit:      plan.Limit,
		TotalPages: query.TotalPages(total, plan.Limit),
	}))
}

func (s *Server) createBug(ctx *bugtracker.Context) error {
	var payload createBugPayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	actor := principal(ctx)
	bug, err := s.bugs.Insert(ctx.Request.Context(), payload.bug(actor.ID))
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}

	ctx.Logger().Info("bug created", slog.String("target_id", bug.ID))
	return ctx.JSON(http.StatusCreated, render.OK(bug))
}

func (s *Server) getBug(ctx *bugtracker.Context) error {
	bug, err := s.findBug(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	names, err := s.lookupPeople(ctx.Request.Context(), []model.Bug{*bug}, nil)
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}
	return ctx.JSON(http.StatusOK, render.OK(names.bug(*bug)))
}

// updateBug applies a partial update. Ownership is checked against the
// stored bug before the store is asked to write.
func (s *Server) updateBug(ctx *bugtracker.Context) error {
	id := ctx.Param("id")
	bug, err := s.findBug(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanMutate(principal(ctx), bug) {
		return apperr.Forbidden(auth.MessageCannotUpdateBug, nil)
	}

	var payload updateBugPayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	updated, err := s.bugs.UpdateByID(ctx.Request.Context(), bug.ID, payload.patch())
	if err != nil {
		return storeError(err, messageBugNotFound)
	}

	ctx.Logger().Info("bug updated", slog.String("target_id", updated.ID))
	return ctx.JSON(http.StatusOK, render.OK(updated))
}

func (s *Server) deleteBug(ctx *bugtracker.Context) error {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		return apperr.NotFound(messageBugBadID, nil)
	}
	if err := s.bugs.DeleteByID(ctx.Request.Context(), id); err != nil {
		return storeError(err, messageBugNotFound)
	}

	ctx.Logger().Info("bug deleted", slog.String("target_id", id))
	return ctx.JSON(http.StatusOK, render.Removed(messageBugRemoved))
}

func (s *Server) findBug(ctx *bugtracker.Context, raw string) (*model.Bug, error) {
	id, ok := parseID(raw)
	if !ok {
		return nil, apperr.NotFound(messageBugBadID, nil)
	}
	bug, err := s.bugs.FindByID(ctx.Request.Context(), id)
	if err != nil {
		return nil, storeError(err, messageBugNotFound)
	}
	return bug, nil
}

// parseID normalizes a path identifier; anything that is not a UUID names
// no resource.
func parseID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func storeError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound, err)
	}
	return apperr.Unexpected(messageServerFailure, err)
}
