package api

import (
	"context"
	"errors"

	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/store"
)

// person is the public face of a user referenced by a bug or comment.
type person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type commentView struct {
	model.Comment
	Author *person `json:"author"`
}

// bugView is a bug with its user references resolved to names. The raw
// ids stay in createdBy and assignedTo.
type bugView struct {
	model.Bug
	Creator  *person       `json:"creator"`
	Assignee *person       `json:"assignee"`
	Comments []commentView `json:"comments"`
}

// people resolves user ids to names. Users that no longer exist resolve to
// nil.
type people map[string]*person

func (s *Server) lookupPeople(ctx context.Context, bugs []model.Bug, comments []model.Comment) (people, error) {
	out := people{}
	resolve := func(id string) error {
		if id == "" {
			return nil
		}
		if _, seen := out[id]; seen {
			return nil
		}
		user, err := s.users.UserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			out[id] = nil
			return nil
		}
		if err != nil {
			return err
		}
		out[id] = &person{ID: user.ID, Name: user.Name}
		return nil
	}

	for _, bug := range bugs {
		if err := resolve(bug.CreatedBy); err != nil {
			return nil, err
		}
		if bug.AssignedTo != nil {
			if err := resolve(*bug.AssignedTo); err != nil {
				return nil, err
			}
		}
		for _, c := range bug.Comments {
			if err := resolve(c.CreatedBy); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range comments {
		if err := resolve(c.CreatedBy); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p people) comments(comments []model.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentView{Comment: c, Author: p[c.CreatedBy]})
	}
	return out
}

func (p people) bug(bug model.Bug) bugView {
	view := bugView{Bug: bug, Creator: p[bug.CreatedBy], Comments: p.comments(bug.Comments)}
	if bug.AssignedTo != nil {
		view.Assignee = p[*bug.AssignedTo]
	}
	return view
}

// document is the projectable form of a resolved bug.
func (p people) document(bug model.Bug) map[string]any {
	view := p.bug(bug)
	doc := bug.Document()
	doc["creator"] = view.Creator
	doc["assignee"] = view.Assignee
	doc["comments"] = view.Comments
	return doc
}
