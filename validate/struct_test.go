package validate

import (
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/bigyanadk07/BugTracker/apperr"
)

type registerInput struct {
	Name     string `json:"name" label:"Name" validate:"required,max=50"`
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required,min=6"`
}

type patchInput struct {
	Title    *string `json:"title" label:"Title" validate:"required,max=5"`
	Status   *string `json:"status" label:"Status" validate:"oneof=Open|In Progress|Closed"`
	Assignee *string `json:"assignedTo" validate:"uuid"`
}

func TestStructValidation(t *testing.T) {
	input := registerInput{Name: "  ", Email: "invalid", Password: "abc"}
	err := Struct(input)
	if err == nil {
		t.Fatalf("expected validation error")
	}

	appErr := apperr.As(err)
	if appErr == nil || appErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 app error, got %v", err)
	}
	verr, ok := As(err)
	if !ok {
		t.Fatalf("expected validation errors")
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d", len(verr.Fields))
	}
	if verr.Fields[0].Field != "name" || verr.Fields[0].Message != "Name is required" {
		t.Fatalf("unexpected first error %+v", verr.Fields[0])
	}
	if appErr.Message != "Name is required" {
		t.Fatalf("expected first message to lead, got %q", appErr.Message)
	}
}

func TestPointerFieldsArePartial(t *testing.T) {
	status := "In Progress"
	title := "ok"
	if err := Struct(&patchInput{Title: &title, Status: &status}); err != nil {
		t.Fatalf("expected valid patch, got %v", err)
	}

	bad := "Done"
	long := "too long title"
	id := "not-a-uuid"
	err := Struct(&patchInput{Title: &long, Status: &bad, Assignee: &id})
	verr, ok := As(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	messages := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		messages = append(messages, f.Message)
	}
	joined := strings.Join(messages, ";")
	for _, want := range []string{"Title cannot be more than 5 characters", "Status must be one of", "assignedTo must be a valid id"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %q", want, joined)
		}
	}

	err = Struct(&patchInput{})
	verr, ok = As(err)
	if !ok || len(verr.Fields) != 1 || verr.Fields[0].Field != "title" {
		t.Fatalf("expected required title, got %v", err)
	}
}

func TestRegisterCustomValidator(t *testing.T) {
	Register("lowercase", func(label string, value reflect.Value, _ string) *FieldError {
		if value.String() != strings.ToLower(value.String()) {
			return &FieldError{Message: label + " must be lowercase"}
		}
		return nil
	})

	type input struct {
		Tag string `json:"tag" validate:"lowercase"`
	}
	if err := Struct(input{Tag: "ok"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := Struct(input{Tag: "NO"}); err == nil {
		t.Fatalf("expected custom validator to fail")
	}
}
