package bugtracker

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/render"
	"github.com/bigyanadk07/BugTracker/router"
)

// Context holds request-specific data.
type Context struct {
	ResponseWriter http.ResponseWriter
	Request        *http.Request
	Params         router.Params

	app    *App
	route  string
	values map[string]any
}

// NewContext constructs a Context.
func NewContext(w http.ResponseWriter, r *http.Request, params router.Params, app *App) *Context {
	return &Context{
		ResponseWriter: w,
		Request:        r,
		Params:         params,
		app:            app,
		values:         make(map[string]any),
	}
}

// Param returns a route param.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Query returns a query param.
func (c *Context) Query(name string) string {
	return c.Request.URL.Query().Get(name)
}

// QueryValues returns every query parameter, repeated keys included.
func (c *Context) QueryValues() url.Values {
	return c.Request.URL.Query()
}

// Route returns "METHOD /pattern" for the matched route, or "" when none matched.
func (c *Context) Route() string {
	return c.route
}

// Set stores a value in the context.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Get retrieves a stored value.
func (c *Context) Get(key string) (any, bool) {
	value, ok := c.values[key]
	return value, ok
}

// Logger returns the app logger bound to this request.
func (c *Context) Logger() Logger {
	logger := Logger{logger: c.app.logger, requestID: c.RequestID()}
	if principal, ok := PrincipalFromContext(c); ok && principal != nil {
		logger.actorID = principal.ID
	}
	return logger
}

// JSON responds with JSON.
func (c *Context) JSON(status int, payload any) error {
	return render.JSON(c.ResponseWriter, status, payload)
}

// Text responds with plain text.
func (c *Context) Text(status int, message string) error {
	return render.Text(c.ResponseWriter, status, message)
}

// BindJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.
func (c *Context) BindJSON(dst any) error {
	body := c.Request.Body
	if limit := c.app.config.MaxBodyBytes; limit > 0 {
		body = http.MaxBytesReader(c.ResponseWriter, body, limit)
	}

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.PayloadTooLarge("request body too large", err)
		}
		return apperr.BadRequest("invalid JSON", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperr.BadRequest("unexpected JSON payload", err)
	}
	return nil
}

// RequestID returns the request id header.
func (c *Context) RequestID() string {
	return RequestIDFromHeader(c.Request)
}
