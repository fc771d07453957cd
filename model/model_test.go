package model

import "testing"

func TestBugPatchApply(t *testing.T) {
	assignee := "u2"
	bug := Bug{ID: "b1", Title: "Crash", Status: StatusOpen, Priority: PriorityLow, CreatedBy: "u1", AssignedTo: &assignee}

	status := StatusClosed
	title := "Crash on save"
	out := BugPatch{Status: &status, Title: &title}.Apply(bug)
	if out.Status != StatusClosed || out.Title != title {
		t.Fatalf("unexpected patch result %+v", out)
	}
	if out.Priority != PriorityLow || out.CreatedBy != "u1" || out.AssignedTo == nil {
		t.Fatalf("untouched fields changed: %+v", out)
	}

	cleared := BugPatch{ClearAssignee: true}.Apply(bug)
	if cleared.AssignedTo != nil {
		t.Fatalf("expected assignee cleared")
	}
	if bug.AssignedTo == nil {
		t.Fatalf("apply mutated the original")
	}
}

func TestDocumentUsesWireNames(t *testing.T) {
	doc := Bug{ID: "b1", CreatedBy: "u1"}.Document()
	for _, key := range []string{"id", "title", "createdBy", "assignedTo", "comments", "createdAt"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing %q", key)
		}
	}
	if comments, ok := doc["comments"].([]Comment); !ok || comments == nil {
		t.Fatalf("expected empty comment slice")
	}
}

func TestBugComment(t *testing.T) {
	bug := Bug{Comments: []Comment{{ID: "c1", CreatedBy: "u3"}}}
	comment, ok := bug.Comment("c1")
	if !ok || comment.OwnerID() != "u3" {
		t.Fatalf("expected comment c1")
	}
	if _, ok := bug.Comment("c2"); ok {
		t.Fatalf("expected missing comment")
	}
}
