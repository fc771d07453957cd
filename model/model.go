// Package model holds the records the service stores and serves.
package model

import (
	"time"

	"github.com/bigyanadk07/BugTracker"
)

// Priority ranks how urgent a bug is.
type Priority string

// Priorities accepted on the wire.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Status is the lifecycle stage of a bug.
type Status string

// Statuses accepted on the wire.
const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusClosed     Status = "Closed"
)

// Comment is a note attached to a bug.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerID returns the comment author.
func (c Comment) OwnerID() string {
	return c.CreatedBy
}

// Bug is a tracked defect. CreatedBy is set once at creation.
type Bug struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	AssignedTo  *string   `json:"assignedTo"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnerID returns the bug creator.
func (b Bug) OwnerID() string {
	return b.CreatedBy
}

// Comment returns the comment with id, if present.
func (b Bug) Comment(id string) (Comment, bool) {
	for _, comment := range b.Comments {
		if comment.ID == id {
			return comment, true
		}
	}
	return Comment{}, false
}

// Document returns the bug keyed by its wire field names, for projection.
func (b Bug) Document() map[string]any {
	comments := b.Comments
	if comments == nil {
		comments = []Comment{}
	}
	return map[string]any{
		"id":          b.ID,
		"title":       b.Title,
		"description": b.Description,
		"priority":    b.Priority,
		"status":      b.Status,
		"createdBy":   b.CreatedBy,
		"assignedTo":  b.AssignedTo,
		"comments":    comments,
		"createdAt":   b.CreatedAt,
		"updatedAt":   b.UpdatedAt,
	}
}

// BugPatch carries the fields a partial update changes. Nil leaves a field
// as is; ClearAssignee unsets AssignedTo.
type BugPatch struct {
	Title         *string
	Description   *string
	Priority      *Priority
	Status        *Status
	AssignedTo    *string
	ClearAssignee bool
}

// Apply returns b with the patch applied.
func (p BugPatch) Apply(b Bug) Bug {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Priority != nil {
		b.Priority = *p.Priority
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.ClearAssignee {
		b.AssignedTo = nil
	} else if p.AssignedTo != nil {
		assignee := *p.AssignedTo
		b.AssignedTo = &assignee
	}
	return b
}

// User is the identity record behind a principal.
type User struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         bugtracker.Role `json:"role"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Principal returns the request principal for u.
func (u User) Principal() bugtracker.Principal {
	return bugtracker.Principal{ID: u.ID, Role: u.Role}
}

// UserPatch carries profile changes. Role is only set by operators, never
// from a profile request.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *bugtracker.Role
}

// Apply returns u with the patch applied.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}
