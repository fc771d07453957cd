package api

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/validate"
)

func init() {
	validate.Register("notblank", func(label string, value reflect.Value, _ string) *validate.FieldError {
		if value.Kind() == reflect.String && strings.TrimSpace(value.String()) == "" {
			return &validate.FieldError{Message: label + " is required"}
		}
		return nil
	})
	validate.Register("assignee", func(label string, value reflect.Value, _ string) *validate.FieldError {
		assignee, ok := value.Interface().(Assignee)
		if !ok || !assignee.Set || assignee.ID == "" {
			return nil
		}
		if _, err := uuid.Parse(assignee.ID); err != nil {
			return &validate.FieldError{Message: label + " must be a valid id"}
		}
		return nil
	})
}

// Assignee distinguishes an absent assignedTo from an explicit null or "",
// both of which unassign.
type Assignee struct {
	Set bool
	ID  string
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Assignee) UnmarshalJSON(data []byte) error {
	a.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		a.ID = ""
		return nil
	}
	return json.Unmarshal(data, &a.ID)
}

func (a Assignee) pointer() *string {
	if !a.Set || a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

type createBugPayload struct {
	Title       string         `json:"title" validate:"required,max=100" label:"Bug title"`
	Description string         `json:"description" validate:"max=1000" label:"Description"`
	Priority    model.Priority `json:"priority" validate:"oneof=Low|Medium|High" label:"Priority"`
	Status      model.Status   `json:"status" validate:"oneof=Open|In Progress|Closed" label:"Status"`
	AssignedTo  Assignee       `json:"assignedTo" validate:"assignee" label:"Assignee"`
}

func (p createBugPayload) bug(owner string) model.Bug {
	priority := p.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	status := p.Status
	if status == "" {
		status = model.StatusOpen
	}
	return model.Bug{
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Priority:    priority,
		Status:      status,
		CreatedBy:   owner,
		AssignedTo:  p.AssignedTo.pointer(),
	}
}

type updateBugPayload struct {
	Title       *string         `json:"title" validate:"notblank,max=100" label:"Bug title"`
	Description *string         `json:"description" validate:"max=1000" label:"Description"`
	Priority    *model.Priority `json:"priority" validate:"oneof=Low|Medium|High" label:"Priority"`
	Status      *model.Status   `json:"status" validate:"oneof=Open|In Progress|Closed" label:"Status"`
	AssignedTo  Assignee        `json:"assignedTo" validate:"assignee" label:"Assignee"`
}

func (p updateBugPayload) patch() model.BugPatch {
	patch := model.BugPatch{
		Priority: p.Priority,
		Status:   p.Status,
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		patch.Title = &title
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		patch.Description = &description
	}
	if p.AssignedTo.Set {
		patch.AssignedTo = p.AssignedTo.pointer()
		patch.ClearAssignee = patch.AssignedTo == nil
	}
	return patch
}

type commentPayload struct {
	Text string `json:"text" validate:"required,max=500" label:"Comment text"`
}

type registerPayload struct {
	Name     string `json:"name" validate:"required,max=50" label:"Name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required,min=6" label:"Password"`
	Role     string `json:"role" validate:"oneof=User|Tester|Admin" label:"Role"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type profilePayload struct {
	Name     *string `json:"name" validate:"notblank,max=50" label:"Name"`
	Email    *string `json:"email" validate:"notblank,email" label:"Email"`
	Password *string `json:"password" validate:"min=6" label:"Password"`
}

// account is the body returned by register, login and profile updates.
type account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token,omitempty"`
}

func accountOf(user model.User, token string) account {
	return account{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
		Token: token,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
