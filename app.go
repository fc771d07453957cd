package bugtracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bigyanadk07/BugTracker/apperr"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/logging"
	"github.com/bigyanadk07/BugTracker/render"
	"github.com/bigyanadk07/BugTracker/router"
	"github.com/bigyanadk07/BugTracker/validate"
)

// Handler handles a request and returns an error for centralized handling.
type Handler func(*Context) error

// Middleware wraps a handler with additional behavior.
type Middleware func(Handler) Handler

// ErrorHandler turns a handler error into a response.
type ErrorHandler func(*Context, error)

type routeEntry struct {
	method     string
	pattern    string
	handler    Handler
	middleware []Middleware
}

// App is the HTTP entrypoint: a router, global middleware and one error
// handler that maps every failure to a response envelope.
type App struct {
	router       *router.Router
	routes       map[router.RouteID]*routeEntry
	middleware   []Middleware
	logger       *slog.Logger
	config       config.Config
	errorHandler ErrorHandler
}

// Option customizes the app instance.
type Option func(*App)

// New creates a new App with defaults.
func New(options ...Option) *App {
	app := &App{
		router: router.New(),
		routes: make(map[router.RouteID]*routeEntry),
		config: config.Default(),
	}
	app.errorHandler = app.handleError

	for _, opt := range options {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.NewLogger(logging.Options{Level: app.config.LogLevel, Format: app.config.LogFormat})
	}
	return app
}

// WithConfig overrides the default config.
func WithConfig(cfg config.Config) Option {
	return func(app *App) {
		app.config = cfg
	}
}

// WithLogger uses a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(app *App) {
		app.logger = logger
	}
}

// WithErrorHandler overrides the default error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(app *App) {
		app.errorHandler = handler
	}
}

// Config returns the app configuration.
func (a *App) Config() config.Config {
	return a.config
}

// Log returns the underlying structured logger.
func (a *App) Log() *slog.Logger {
	return a.logger
}

// Use registers global middleware.
func (a *App) Use(middleware ...Middleware) {
	a.middleware = append(a.middleware, middleware...)
}

// GET registers a GET route.
func (a *App) GET(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodGet, path, handler, middleware)
}

// POST registers a POST route.
func (a *App) POST(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodPost, path, handler, middleware)
}

// PUT registers a PUT route.
func (a *App) PUT(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodPut, path, handler, middleware)
}

// DELETE registers a DELETE route.
func (a *App) DELETE(path string, handler Handler, middleware ...Middleware) {
	a.handle(http.MethodDelete, path, handler, middleware)
}

// Handle registers a route for an arbitrary method.
func (a *App) Handle(method, path string, handler Handler, middleware ...Middleware) {
	a.handle(method, path, handler, middleware)
}

func (a *App) handle(method, path string, handler Handler, middleware []Middleware) {
	id, err := a.router.Add(method, path)
	if err != nil {
		a.logger.Error("route registration failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	a.routes[id] = &routeEntry{
		method:     method,
		pattern:    path,
		handler:    handler,
		middleware: middleware,
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, params, ok := a.router.Match(r.Method, r.URL.Path)
	if !ok {
		ctx := NewContext(w, r, router.Params{}, a)
		a.dispatch(ctx, a.fallback(r), nil)
		return
	}

	entry := a.routes[id]
	ctx := NewContext(w, r, params, a)
	ctx.route = entry.method + " " + entry.pattern
	a.dispatch(ctx, entry.handler, entry.middleware)
}

func (a *App) dispatch(ctx *Context, handler Handler, routeMiddleware []Middleware) {
	h := handler
	for i := len(routeMiddleware) - 1; i >= 0; i-- {
		h = routeMiddleware[i](h)
	}
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}

	if err := h(ctx); err != nil {
		a.errorHandler(ctx, err)
	}
}

// fallback answers unmatched requests: 405 when the path exists under
// another method, 404 otherwise.
func (a *App) fallback(r *http.Request) Handler {
	allowed := a.router.Allowed(r.URL.Path)
	if len(allowed) > 0 {
		return func(ctx *Context) error {
			ctx.ResponseWriter.Header().Set("Allow", strings.Join(allowed, ", "))
			return apperr.MethodNotAllowed("Method " + r.Method + " not allowed on " + r.URL.Path)
		}
	}
	return func(ctx *Context) error {
		return apperr.NotFound("Route Not Found - "+r.URL.Path, nil)
	}
}

func (a *App) handleError(ctx *Context, err error) {
	appErr := apperr.As(err)
	if appErr == nil {
		appErr = apperr.Unexpected("Server Error", err)
	}

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.Int("status", appErr.Status),
		slog.String("error", err.Error()),
	}
	if ctx.route != "" {
		attrs = append(attrs, slog.String("operation", ctx.route))
	}
	if target := ctx.Param("id"); target != "" {
		attrs = append(attrs, slog.String("target_id", target))
	}
	if appErr.Status >= http.StatusInternalServerError {
		ctx.Logger().Error("request failed", attrs...)
	} else {
		ctx.Logger().Warn("request rejected", attrs...)
	}

	body := render.Failure(appErr.Message)
	if verr, ok := validate.As(err); ok {
		for _, field := range verr.Fields {
			body.Errors = append(body.Errors, render.FieldError{Field: field.Field, Message: field.Message})
		}
	}
	if a.config.Development() && appErr.Cause != nil {
		body.Stack = appErr.Cause.Error()
	}

	if err := ctx.JSON(appErr.Status, body); err != nil {
		ctx.Logger().Debug("error response not written", slog.String("error", err.Error()))
	}
}

// Run starts the server and shuts down when the context is canceled.
func (a *App) Run(ctx context.Context) error {
	server := a.newServer()
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("server starting", slog.String("address", a.config.Address), slog.String("env", a.config.Env))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		a.logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunWithSignals starts the server and handles SIGINT/SIGTERM for shutdown.
func (a *App) RunWithSignals() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}

func (a *App) newServer() *http.Server {
	return &http.Server{
		Addr:              a.config.Address,
		Handler:           a,
		ReadTimeout:       a.config.ReadTimeout,
		WriteTimeout:      a.config.WriteTimeout,
		IdleTimeout:       a.config.IdleTimeout,
		ReadHeaderTimeout: a.config.ReadHeaderTimeout,
		MaxHeaderBytes:    a.config.MaxHeaderBytes,
	}
}
