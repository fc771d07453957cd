package api

import (
	"log/slog"
	"net/http"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/render"
	"github.com/bigyanadk07/BugTracker/validate"
)

const (
	messageCommentNotFound = "Comment not found"
	messageCommentBadID    = "Resource not found with this ID"
	messageCommentRemoved  = "Comment removed successfully"
)

func (s *Server) addComment(ctx *bugtracker.Context) error {
	bug, err := s.findBug(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var payload commentPayload
	if err := ctx.BindJSON(&payload); err != nil {
		return err
	}
	if err := validate.Struct(payload); err != nil {
		return err
	}

	comment, err := s.bugs.AddComment(ctx.Request.Context(), bug.ID, model.Comment{
		Text:      payload.Text,
		CreatedBy: principal(ctx).ID,
	})
	if err != nil {
		return storeError(err, messageBugNotFound)
	}

	ctx.Logger().Info("comment added",
		slog.String("target_id", bug.ID),
		slog.String("comment_id", comment.ID),
	)
	return ctx.JSON(http.StatusCreated, render.OK(comment))
}

func (s *Server) listComments(ctx *bugtracker.Context) error {
	bug, err := s.findBug(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	names, err := s.lookupPeople(ctx.Request.Context(), nil, bug.Comments)
	if err != nil {
		return apperr.Unexpected(messageServerFailure, err)
	}
	return ctx.JSON(http.StatusOK, render.List(names.comments(bug.Comments), len(bug.Comments)))
}

func (s *Server) deleteComment(ctx *bugtracker.Context) error {
	bugID, ok := parseID(ctx.Param("id"))
	if !ok {
		return apperr.NotFound(messageCommentBadID, nil)
	}
	commentID, ok := parseID(ctx.Param("commentId"))
	if !ok {
		return apperr.NotFound(messageCommentBadID, nil)
	}

	bug, err := s.bugs.FindByID(ctx.Request.Context(), bugID)
	if err != nil {
		return storeError(err, messageBugNotFound)
	}
	comment, ok := bug.Comment(commentID)
	if !ok {
		return apperr.NotFound(messageCommentNotFound, nil)
	}
	if !auth.CanDeleteComment(principal(ctx), comment, bug) {
		return apperr.Forbidden(auth.MessageCannotDeleteComment, nil)
	}

	if err := s.bugs.DeleteComment(ctx.Request.Context(), bugID, commentID); err != nil {
		return storeError(err, messageCommentNotFound)
	}

	ctx.Logger().Info("comment deleted",
		slog.String("target_id", bugID),
		slog.String("comment_id", commentID),
	)
	return ctx.JSON(http.StatusOK, render.Removed(messageCommentRemoved))
}
