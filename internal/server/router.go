// Package server exposes the supervisor surface over HTTP for front
// ends: the CLI client, the TUI, and anything else that can speak
// JSON. Edits go to the config file; POST /apply makes them live.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/metrics"
	"github.com/loykin/wpe/internal/supervisor"
)

// Router provides embeddable HTTP handlers for the serve daemon.
// Endpoints:
//
//	GET  /api/status   running state per monitor
//	POST /api/apply    reload config.toml and reconcile
//	POST /api/stop     stop every tracked renderer
//	GET  /metrics      Prometheus exposition
type Router struct {
	sup        *supervisor.Supervisor
	configPath string
}

func NewRouter(sup *supervisor.Supervisor, configPath string) *Router {
	return &Router{sup: sup, configPath: configPath}
}

// Handler returns a gin-powered http.Handler that can be mounted in
// any server or mux.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	api := g.Group("/api")
	api.GET("/status", r.handleStatus)
	api.POST("/apply", r.handleApply)
	api.POST("/stop", r.handleStop)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, configPath string, sup *supervisor.Supervisor) *http.Server {
	r := NewRouter(sup, configPath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

type errorResp struct {
	Error string `json:"error"`
}

// StatusResponse is the GET /api/status payload.
type StatusResponse struct {
	Monitors map[string]supervisor.RunState `json:"monitors"`
}

// ApplyResponse is the POST /api/apply payload.
type ApplyResponse struct {
	Results      []supervisor.Result `json:"results"`
	ConfigErrors []string            `json:"config_errors,omitempty"`
}

// StopResponse is the POST /api/stop payload.
type StopResponse struct {
	Failures []supervisor.StopFailure `json:"failures,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Monitors: r.sup.Snapshot()})
}

func (r *Router) handleApply(c *gin.Context) {
	fc, err := config.Load(r.configPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	col, entryErrs := config.Validate(fc.Wallpapers)
	resp := ApplyResponse{}
	for _, e := range entryErrs {
		resp.ConfigErrors = append(resp.ConfigErrors, e.Error())
	}
	if col.Len() == 0 && len(entryErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	report := r.sup.Apply(col)
	resp.Results = report.Results
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleStop(c *gin.Context) {
	failures := r.sup.StopAll()
	c.JSON(http.StatusOK, StopResponse{Failures: failures})
}
