// Package openapi builds a minimal OpenAPI 3 document for the routes an
// app serves.
package openapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrUnsupportedMethod is returned for methods the document cannot hold.
var ErrUnsupportedMethod = errors.New("unsupported method")

// BearerScheme is the security scheme name used by protected operations.
const BearerScheme = "bearerAuth"

// Document describes an OpenAPI document.
type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Paths      map[string]*PathItem `json:"paths"`
	Components Components           `json:"components"`
}

// Info describes API metadata.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Components holds the security schemes.
type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme describes an auth scheme.
type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

// PathItem holds the operations of one path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation describes a single API operation.
type Operation struct {
	Summary    string                `json:"summary,omitempty"`
	Tags       []string              `json:"tags,omitempty"`
	Parameters []Parameter           `json:"parameters,omitempty"`
	Responses  map[string]Response   `json:"responses"`
	Security   []map[string][]string `json:"security,omitempty"`
}

// Parameter describes a path or query parameter.
type Parameter struct {
	Name     string `json:"name"`
	In       string `json:"in"`
	Required bool   `json:"required,omitempty"`
	Schema   Schema `json:"schema"`
}

// Schema is the subset of JSON schema used by parameters.
type Schema struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
}

// Response describes a response by status.
type Response struct {
	Description string `json:"description"`
}

// Route is one documented endpoint.
type Route struct {
	Method    string
	Path      string
	Summary   string
	Tag       string
	Protected bool
	// Query names the optional query parameters.
	Query     []string
	Responses map[int]string
}

// Builder composes a Document.
type Builder struct {
	doc Document
}

// New creates a Builder with a bearer security scheme.
func New(info Info) *Builder {
	return &Builder{
		doc: Document{
			OpenAPI: "3.0.3",
			Info:    info,
			Paths:   map[string]*PathItem{},
			Components: Components{
				SecuritySchemes: map[string]SecurityScheme{
					BearerScheme: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
				},
			},
		},
	}
}

// Document returns the built document.
func (b *Builder) Document() *Document {
	return &b.doc
}

// Add documents route. Router params such as ":id" become "{id}" path
// parameters.
func (b *Builder) Add(route Route) error {
	path, params := convertPath(route.Path)
	for _, name := range route.Query {
		params = append(params, Parameter{Name: name, In: "query", Schema: Schema{Type: "string"}})
	}

	op := &Operation{
		Summary:    route.Summary,
		Parameters: params,
		Responses:  map[string]Response{},
	}
	if route.Tag != "" {
		op.Tags = []string{route.Tag}
	}
	if route.Protected {
		op.Security = []map[string][]string{{BearerScheme: {}}}
	}
	for status, description := range route.Responses {
		op.Responses[strconv.Itoa(status)] = Response{Description: description}
	}
	if len(op.Responses) == 0 {
		op.Responses["default"] = Response{Description: "Response envelope"}
	}

	item := b.doc.Paths[path]
	if item == nil {
		item = &PathItem{}
	}
	switch strings.ToUpper(route.Method) {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodDelete:
		item.Delete = op
	default:
		return ErrUnsupportedMethod
	}
	b.doc.Paths[path] = item
	return nil
}

func convertPath(path string) (string, []Parameter) {
	var params []Parameter
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok && name != "" {
			parts[i] = "{" + name + "}"
			params = append(params, Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema:   Schema{Type: "string", Format: "uuid"},
			})
		}
	}
	return strings.Join(parts, "/"), params
}

// Handler serves doc as JSON.
func Handler(doc *Document) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(doc)
	})
}
