package cmd

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	statusHealthy      = "healthy"
	statusShuttingDown = "shutting down"

	// millisecond precision, always rendered in UTC with a Z suffix
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"

	ignoreShuttingDownParam = "greetd.ignoreShuttingDownState"

	notFoundDocument = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Error</title>
</head>
<body>
<pre>Cannot %s %s</pre>
</body>
</html>
`
)

type app struct {
	opts         AppOptions
	shuttingDown atomic.Bool
	now          func() time.Time
	log          *slog.Logger
}

// AppOptions selects what the router serves.
type AppOptions struct {
	// Greeting is served verbatim as HTML on /.
	Greeting string
	// Health registers the /health route.
	Health bool
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewApp returns a handler set that is not shutting down.
func NewApp(opts AppOptions) *app {
	return &app{
		opts: opts,
		now:  time.Now,
		log:  slog.Default().With("component", "http-handler"),
	}
}

// InitiateShutdown switches /health to 503 so that load balancers stop
// routing to this instance before the listener goes away.
func (a *app) InitiateShutdown() {
	a.shuttingDown.Store(true)
}

// Router builds the routing table. Anything it does not list, including
// a known path with another method, ends up in NotFoundHandler.
func (a *app) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.GetHead)

	r.Get("/", a.GreetingHandler)
	if a.opts.Health {
		r.Get("/health", a.HealthHandler)
	}

	r.NotFound(a.NotFoundHandler)
	r.MethodNotAllowed(a.NotFoundHandler)

	return r
}

// GreetingHandler writes the configured HTML snippet.
func (a *app) GreetingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, a.opts.Greeting)
}

// HealthHandler reports liveness with the current time. While draining it
// answers 503, unless the ignore query parameter is set to 1.
func (a *app) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    statusHealthy,
		Timestamp: a.now().UTC().Format(timestampLayout),
	}
	code := http.StatusOK

	if r.URL.Query().Get(ignoreShuttingDownParam) != "1" && a.shuttingDown.Load() {
		a.log.Debug("responding service is shutting down")
		resp.Status = statusShuttingDown
		code = http.StatusServiceUnavailable
	}

	body, err := json.Marshal(resp)
	if err != nil {
		a.log.Error("encoding health response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

// NotFoundHandler is the fallback for every request without a route.
func (a *app) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, notFoundDocument, r.Method, html.EscapeString(r.URL.Path))
}
