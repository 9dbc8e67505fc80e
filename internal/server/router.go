package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/fmonctl/internal/metrics"
	"github.com/loykin/fmonctl/internal/status"
	"github.com/loykin/fmonctl/internal/telemetry"
	"github.com/loykin/fmonctl/internal/worker"
)

// Router provides embeddable HTTP handlers over the monitor state.
// Endpoints:
//
//	GET {basePath}/status              merged status report
//	GET {basePath}/logs/stats          event log statistics (query: kind=)
//	GET {basePath}/logs/search         query: q=...&limit=50&kind=
//	GET {basePath}/logs/tail           query: lines=20&kind=
//	GET {basePath}/healthz             liveness of this server itself
//	GET {basePath}/metrics             Prometheus exposition (when enabled)
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	agg          *status.Aggregator
	dataDir      string
	basePath     string
	serveMetrics bool
	defaultKind  worker.Kind
}

// NewRouter constructs a Router. Example basePath "/fmon" results in
// /fmon/status, /fmon/logs/stats and so on.
func NewRouter(agg *status.Aggregator, dataDir, basePath string, defaultKind worker.Kind, serveMetrics bool) *Router {
	return &Router{
		agg:          agg,
		dataDir:      dataDir,
		basePath:     sanitizeBase(basePath),
		serveMetrics: serveMetrics,
		defaultKind:  defaultKind,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/logs/stats", r.handleLogStats)
	group.GET("/logs/search", r.handleLogSearch)
	group.GET("/logs/tail", r.handleLogTail)
	group.GET("/healthz", r.handleHealthz)
	if r.serveMetrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down via http.Server's Shutdown or Close.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) resolveKind(c *gin.Context) (worker.Kind, bool) {
	kind := r.defaultKind
	if q := c.Query("kind"); q != "" {
		k, err := worker.ParseKind(q)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
			return "", false
		}
		kind = k
	}
	return kind, true
}

func (r *Router) eventLog(c *gin.Context) (string, bool) {
	kind, ok := r.resolveKind(c)
	if !ok {
		return "", false
	}
	return kind.EventLog(r.dataDir), true
}

func (r *Router) handleStatus(c *gin.Context) {
	rep := r.agg.Aggregate(c.Request.Context())
	writeJSON(c, http.StatusOK, rep)
}

func (r *Router) handleLogStats(c *gin.Context) {
	kind, ok := r.resolveKind(c)
	if !ok {
		return
	}
	stats, err := telemetry.ComputeStats(kind.EventLog(r.dataDir))
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	metrics.SetLogEvents(string(kind), stats.TotalEvents)
	writeJSON(c, http.StatusOK, stats)
}

func (r *Router) handleLogSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "q query param required"})
		return
	}
	limit := 0
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	path, ok := r.eventLog(c)
	if !ok {
		return
	}
	matches, err := telemetry.Search(path, q, limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"query": q, "count": len(matches), "matches": matches})
}

func (r *Router) handleLogTail(c *gin.Context) {
	lines := 20
	if ls := c.Query("lines"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "lines must be a positive integer"})
			return
		}
		lines = n
	}
	path, ok := r.eventLog(c)
	if !ok {
		return
	}
	tail, err := telemetry.TailLines(path, lines)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"count": len(tail), "lines": tail})
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
