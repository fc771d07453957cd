package query

import (
	"math"
	"net/url"
	"reflect"
	"testing"
)

func TestOperatorRewrite(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  Filter
	}{
		{
			name:  "equality",
			query: "status=Open",
			want:  Filter{{Field: "status", Op: OpEq, Values: []string{"Open"}}},
		},
		{
			name:  "comparison",
			query: "createdAt[gte]=2024-01-01",
			want:  Filter{{Field: "createdAt", Op: OpGte, Values: []string{"2024-01-01"}}},
		},
		{
			name:  "in splits on commas",
			query: "priority[in]=Low,High",
			want:  Filter{{Field: "priority", Op: OpIn, Values: []string{"Low", "High"}}},
		},
		{
			name:  "repeated equality is any of",
			query: "status=Open&status=Closed",
			want:  Filter{{Field: "status", Op: OpEq, Values: []string{"Open", "Closed"}}},
		},
		{
			name:  "nested path",
			query: "a[b][lt]=3",
			want:  Filter{{Field: "a.b", Op: OpLt, Values: []string{"3"}}},
		},
		{
			name:  "values are never rewritten",
			query: "title=gt",
			want:  Filter{{Field: "title", Op: OpEq, Values: []string{"gt"}}},
		},
		{
			name:  "top level operator key becomes a field",
			query: "in=5",
			want:  Filter{{Field: "$in", Op: OpEq, Values: []string{"5"}}},
		},
		{
			name:  "unknown operator stays in the path",
			query: "status[ne]=Open",
			want:  Filter{{Field: "status.ne", Op: OpEq, Values: []string{"Open"}}},
		},
		{
			name:  "reserved keys are stripped",
			query: "page=2&limit=5&sort=title&fields=title",
			want:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := Translate(values).Filter
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("filter = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestRewriteWalksEveryKey(t *testing.T) {
	tree := &Node{Children: []*Node{
		{Key: "in", Children: []*Node{{Key: "gt"}}},
		{Key: "title", Values: []string{"lte"}},
	}}
	Rewrite(tree)

	if tree.Children[0].Key != OpIn || tree.Children[0].Children[0].Key != OpGt {
		t.Fatalf("expected nested keys rewritten: %+v", tree.Children[0])
	}
	if tree.Children[1].Key != "title" || tree.Children[1].Values[0] != "lte" {
		t.Fatalf("expected title untouched: %+v", tree.Children[1])
	}
}

func TestSplitKey(t *testing.T) {
	cases := map[string][]string{
		"status":         {"status"},
		"a[b][c]":        {"a", "b", "c"},
		"a[b":            {"a[b"},
		"[gt]":           {"[gt]"},
		"createdAt[gt]x": {"createdAt", "gtx"},
	}
	for key, want := range cases {
		if got := splitKey(key); !reflect.DeepEqual(got, want) {
			t.Fatalf("splitKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestPagination(t *testing.T) {
	cases := []struct {
		query string
		page  int
		limit int
		skip  int
	}{
		{"", 1, 10, 0},
		{"page=3&limit=5", 3, 5, 10},
		{"page=0&limit=-2", 1, 10, 0},
		{"page=abc&limit=x", 1, 10, 0},
		{"page=2", 2, 10, 10},
		{"page=100000000000000000&limit=100", math.MaxInt / 100, 100, (math.MaxInt/100 - 1) * 100},
	}

	for _, tc := range cases {
		values, _ := url.ParseQuery(tc.query)
		plan := Translate(values)
		if plan.Page != tc.page || plan.Limit != tc.limit || plan.Skip != tc.skip {
			t.Fatalf("%q: got page=%d limit=%d skip=%d", tc.query, plan.Page, plan.Limit, plan.Skip)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestParseSort(t *testing.T) {
	got := ParseSort("-priority,title")
	want := []SortKey{{Field: "priority", Desc: true}, {Field: "title"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sort = %v, want %v", got, want)
	}

	for _, raw := range []string{"", " ", ",", "-"} {
		def := ParseSort(raw)
		if len(def) != 1 || def[0] != (SortKey{Field: "createdAt", Desc: true}) {
			t.Fatalf("expected default sort for %q, got %v", raw, def)
		}
	}
}

func TestProjection(t *testing.T) {
	values, _ := url.ParseQuery("fields=title,status")
	plan := Translate(values)
	if !reflect.DeepEqual(plan.Fields, []string{"id", "title", "status"}) {
		t.Fatalf("unexpected fields %v", plan.Fields)
	}

	doc := map[string]any{"id": "b1", "title": "Crash", "status": "Open", "description": "long"}
	got := plan.Project(doc)
	if len(got) != 3 || got["description"] != nil || got["id"] != "b1" {
		t.Fatalf("unexpected projection %v", got)
	}

	all := Translate(url.Values{}).Project(doc)
	if len(all) != len(doc) {
		t.Fatalf("expected full document without projection")
	}
}
