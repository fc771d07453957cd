// Package query turns list-endpoint query strings into store-neutral plans.
//
// Filter keys use bracket notation: "status=Open", "createdAt[gte]=2024-01-01",
// "a[b][lt]=3". Each key is parsed into a path and the path segments are
// walked; a segment equal to gt, gte, lt, lte or in becomes its "$" form.
// Values are never rewritten. Field and operator names are not checked here;
// the store rejects what it cannot evaluate.
package query

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved parameters that never become filter conditions.
const (
	ParamPage   = "page"
	ParamLimit  = "limit"
	ParamSort   = "sort"
	ParamFields = "fields"
)

// Defaults applied when a parameter is absent or unusable.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	DefaultSort  = "-createdAt"
)

// Comparison operators in store form.
const (
	OpEq  = "$eq"
	OpGt  = "$gt"
	OpGte = "$gte"
	OpLt  = "$lt"
	OpLte = "$lte"
	OpIn  = "$in"
)

var rewrites = map[string]string{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

// Node is one key segment of the filter tree. Leaves carry the raw values
// of the query parameter that ended there.
type Node struct {
	Key      string
	Values   []string
	Children []*Node
}

func (n *Node) child(key string) *Node {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	c := &Node{Key: key}
	n.Children = append(n.Children, c)
	return c
}

// Request is the parsed form of a list query string.
type Request struct {
	// Tree is the root of the filter tree; its Key is empty.
	Tree   *Node
	Page   int
	Limit  int
	Sort   string
	Fields string
}

// Parse splits reserved parameters from filter parameters and builds the
// filter tree. Keys are visited in sorted order so plans are stable.
func Parse(values url.Values) Request {
	req := Request{
		Tree:   &Node{},
		Page:   positiveInt(values.Get(ParamPage), DefaultPage),
		Limit:  positiveInt(values.Get(ParamLimit), DefaultLimit),
		Sort:   values.Get(ParamSort),
		Fields: values.Get(ParamFields),
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		switch key {
		case ParamPage, ParamLimit, ParamSort, ParamFields:
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := req.Tree
		for _, segment := range splitKey(key) {
			node = node.child(segment)
		}
		node.Values = append(node.Values, values[key]...)
	}
	return req
}

// splitKey turns "a[b][c]" into ["a", "b", "c"]. Text that does not follow
// the bracket grammar stays part of the current segment.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}
	}

	segments := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			segments[len(segments)-1] += rest
			break
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			segments[len(segments)-1] += rest
			break
		}
		segments = append(segments, rest[1:end])
		rest = rest[end+1:]
	}
	return segments
}

// Rewrite walks the tree and replaces every operator key with its store
// form. It returns the tree for chaining.
func Rewrite(node *Node) *Node {
	if node == nil {
		return nil
	}
	if op, ok := rewrites[node.Key]; ok {
		node.Key = op
	}
	for _, c := range node.Children {
		Rewrite(c)
	}
	return node
}

// Condition is one predicate. Field is a dotted path.
// Conditions in a Filter are combined with AND; Values of an $eq or $in
// condition match any of them.
type Condition struct {
	Field  string
	Op     string
	Values []string
}

// Filter is a conjunction of conditions.
type Filter []Condition

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// Plan is everything a store needs to fetch one page.
type Plan struct {
	Filter Filter
	Sort   []SortKey
	Fields []string
	Page   int
	Limit  int
	Skip   int
}

// Translate parses and plans in one step.
func Translate(values url.Values) Plan {
	return Parse(values).Plan()
}

// Plan rewrites the filter tree and flattens it into a Plan.
func (r Request) Plan() Plan {
	page, limit := r.Page, r.Limit
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	// Skip must stay representable.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	var filter Filter
	if r.Tree != nil {
		Rewrite(r.Tree)
		for _, c := range r.Tree.Children {
			filter = flatten(filter, nil, c)
		}
	}

	return Plan{
		Filter: filter,
		Sort:   ParseSort(r.Sort),
		Fields: ParseFields(r.Fields),
		Page:   page,
		Limit:  limit,
		Skip:   (page - 1) * limit,
	}
}

func flatten(out Filter, path []string, node *Node) Filter {
	path = append(path[:len(path):len(path)], node.Key)
	if len(node.Values) > 0 {
		out = append(out, leafConditions(path, node.Values)...)
	}
	for _, c := range node.Children {
		out = flatten(out, path, c)
	}
	return out
}

// leafConditions treats the last path segment as the operator when it is
// in store form and is not the only segment. A lone "$in" stays a field.
func leafConditions(path []string, values []string) []Condition {
	last := path[len(path)-1]
	if len(path) > 1 && strings.HasPrefix(last, "$") {
		field := strings.Join(path[:len(path)-1], ".")
		switch last {
		case OpIn:
			var items []string
			for _, v := range values {
				items = append(items, strings.Split(v, ",")...)
			}
			return []Condition{{Field: field, Op: OpIn, Values: items}}
		default:
			out := make([]Condition, 0, len(values))
			for _, v := range values {
				out = append(out, Condition{Field: field, Op: last, Values: []string{v}})
			}
			return out
		}
	}
	return []Condition{{Field: strings.Join(path, "."), Op: OpEq, Values: append([]string(nil), values...)}}
}

// ParseSort reads a comma separated sort expression; "-" marks descending.
// An empty value yields the default newest-first order.
func ParseSort(raw string) []SortKey {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimPrefix(part, "-")
		if part == "" {
			continue
		}
		keys = append(keys, SortKey{Field: part, Desc: desc})
	}
	if len(keys) == 0 {
		return ParseSort(DefaultSort)
	}
	return keys
}

// ParseFields reads a comma separated projection. An empty value means all
// fields; otherwise "id" is always included.
func ParseFields(raw string) []string {
	var fields []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		fields = append(fields, part)
	}
	if len(fields) == 0 {
		return nil
	}
	if !seen["id"] {
		fields = append([]string{"id"}, fields...)
	}
	return fields
}

// Project keeps only the planned fields of doc. With no projection the
// document is returned as is.
func (p Plan) Project(doc map[string]any) map[string]any {
	if len(p.Fields) == 0 {
		return doc
	}
	out := make(map[string]any, len(p.Fields))
	for _, field := range p.Fields {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}

// TotalPages returns ceil(total/limit), 0 when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
