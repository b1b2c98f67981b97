package server

import (
	"crypto/tls"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mcpanel/craftd/internal/broadcast"
	"github.com/mcpanel/craftd/internal/metrics"
	"github.com/mcpanel/craftd/internal/registry"
	"github.com/mcpanel/craftd/internal/supervisor"
)

// Router provides the embeddable HTTP surface over a registry.
// Endpoints (under basePath):
//   GET  /healthz
//   GET  /metrics
//   GET  /api/servers
//   GET  /api/servers/:id
//   GET  /api/servers/:id/console?lines=N
//   POST /api/servers/:id/start
//   POST /api/servers/:id/stop?force=true
//   POST /api/servers/:id/restart
//   POST /api/servers/:id/command    body: {"command": "..."}
//   GET  /ws/servers/:id             websocket event stream
type Router struct {
	reg      *registry.Registry
	hub      *broadcast.Hub
	basePath string
	upgrader websocket.Upgrader
}

func NewRouter(reg *registry.Registry, hub *broadcast.Hub, basePath string) *Router {
	return &Router{
		reg:      reg,
		hub:      hub,
		basePath: sanitizeBase(basePath),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealth)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	api := group.Group("/api")
	api.GET("/servers", r.handleList)
	api.GET("/servers/:id", r.handleStatus)
	api.GET("/servers/:id/console", r.handleConsole)
	api.POST("/servers/:id/start", r.handleStart)
	api.POST("/servers/:id/stop", r.handleStop)
	api.POST("/servers/:id/restart", r.handleRestart)
	api.POST("/servers/:id/command", r.handleCommand)
	if r.hub != nil {
		group.GET("/ws/servers/:id", r.handleWebSocket)
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, reg *registry.Registry, hub *broadcast.Hub) *http.Server {
	srv := newServer(addr, basePath, reg, hub)
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// NewTLSServer starts a standalone HTTPS server on addr. Certificates come
// from tlsCfg's GetCertificate hook.
func NewTLSServer(addr, basePath string, tlsCfg *tls.Config, reg *registry.Registry, hub *broadcast.Hub) *http.Server {
	srv := newServer(addr, basePath, reg, hub)
	srv.TLSConfig = tlsCfg
	go func() { _ = srv.ListenAndServeTLS("", "") }()
	return srv
}

func newServer(addr, basePath string, reg *registry.Registry, hub *broadcast.Hub) *http.Server {
	rt := NewRouter(reg, hub, basePath)
	return &http.Server{
		Addr:              addr,
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type commandReq struct {
	Command string `json:"command"`
}

type consoleResp struct {
	ServerID string   `json:"server_id"`
	Lines    []string `json:"lines"`
}

func (r *Router) lookup(c *gin.Context) (*supervisor.Supervisor, bool) {
	id := c.Param("id")
	if !isSafeName(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid server id"})
		return nil, false
	}
	sup, err := r.reg.Get(id)
	if err != nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
		return nil, false
	}
	return sup, true
}

func writeActionErr(c *gin.Context, err error) {
	switch {
	case err == nil:
		writeJSON(c, http.StatusOK, okResp{OK: true})
	case errors.Is(err, supervisor.ErrInvalidState), errors.Is(err, supervisor.ErrCommandRejected):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case errors.Is(err, supervisor.ErrDestroyed):
		writeJSON(c, http.StatusGone, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
	}
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleList(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.reg.List())
}

func (r *Router) handleStatus(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, sup.Snapshot())
}

func (r *Router) handleConsole(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	n := 100
	if q := c.Query("lines"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "lines must be a positive integer"})
			return
		}
		n = v
	}
	out := sup.RecentOutput(n)
	lines := make([]string, len(out))
	for i, l := range out {
		lines[i] = l.Text
	}
	writeJSON(c, http.StatusOK, consoleResp{ServerID: sup.Identity().ID, Lines: lines})
}

func (r *Router) handleStart(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	writeActionErr(c, sup.Start())
}

func (r *Router) handleStop(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"
	writeActionErr(c, sup.Stop(force))
}

func (r *Router) handleRestart(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	writeActionErr(c, sup.Restart())
}

func (r *Router) handleCommand(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	var req commandReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Command == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "command required"})
		return
	}
	writeActionErr(c, sup.Command(req.Command))
}

func (r *Router) handleWebSocket(c *gin.Context) {
	sup, ok := r.lookup(c)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := r.hub.NewClient(sup.Identity().ID, conn)
	r.hub.Register <- client
	go client.WritePump()
	client.ReadPump()
}
