// Package httpapi exposes the dashboard engine over a small JSON API for
// headless use.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZehenForever/dpsboard/internal/engine"
	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/metrics"
	"github.com/ZehenForever/dpsboard/internal/model"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

const DefaultAddr = "127.0.0.1:8787"

// maxDocumentBytes bounds an uploaded snapshot document.
const maxDocumentBytes = 64 << 20

// Server provides the HTTP API over one engine.
type Server struct {
	addr      string
	eng       *engine.Engine
	status    func() feed.Status
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	now       func() time.Time
}

// NewServer creates the API server. status may be nil when no feed is attached.
func NewServer(addr string, eng *engine.Engine, status func() feed.Status) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		eng:    eng,
		status: status,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}
}

func (s *Server) Addr() string {
	return s.addr
}

// Handler builds the router.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/ranking", s.handleRanking)
	api.GET("/detail/:id", s.handleDetail)
	api.GET("/series", s.handleSeries)
	api.GET("/export/csv", s.handleExportCSV)
	api.GET("/export/summary", s.handleExportSummary)
	api.GET("/snapshot", s.handleGetSnapshot)
	api.POST("/snapshot", s.handlePostSnapshot)
	api.POST("/reset", s.handleReset)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()
	log.Printf("api: listening addr=%s", s.addr)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api: serve error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":      "ok",
		"uptime":      time.Since(s.startTime).Round(time.Second).String(),
		"state":       s.eng.State().String(),
		"auto_resets": s.eng.AutoResets(),
	}
	if last := s.eng.LastData(); !last.IsZero() {
		resp["last_data"] = last.UTC().Format(time.RFC3339)
	}
	if s.status != nil {
		resp["feed"] = s.status()
	}
	c.JSON(http.StatusOK, resp)
}

// modeFromQuery overlays ?mode= and ?single= on the engine's current mode.
func (s *Server) modeFromQuery(c *gin.Context) (ranking.Mode, error) {
	mode := s.eng.Mode()
	if v, ok := c.GetQuery("mode"); ok {
		want := strings.ToLower(strings.TrimSpace(v))
		parsed := model.ParseBossMode(want)
		if string(parsed) != want {
			return mode, errors.New("unknown boss mode: " + v)
		}
		mode.Boss = parsed
	}
	if v, ok := c.GetQuery("single"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return mode, errors.New("single must be a boolean")
		}
		mode.Single = b
	}
	return mode, nil
}

func (s *Server) handleRanking(c *gin.Context) {
	mode, err := s.modeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := s.eng.Snapshot()
	target := snap.TargetFor(mode.Boss)
	rows := ranking.Compute(snap, mode, target)
	c.JSON(http.StatusOK, gin.H{
		"mode":         mode,
		"target_id":    target,
		"runtime_sec":  metrics.RuntimeSeconds(snap.Window(target)),
		"total_damage": ranking.TotalDamage(rows),
		"rows":         rows,
	})
}

func (s *Server) handleDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity id must be an integer"})
		return
	}
	mode, err := s.modeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := s.eng.Snapshot()
	d, ok := ranking.BuildDetail(snap, mode, snap.TargetFor(mode.Boss), id, c.Query("skill"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not ranked"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleSeries(c *gin.Context) {
	lines, avg := s.eng.Series()
	c.JSON(http.StatusOK, gin.H{
		"capacity": s.eng.SampleCapacity(),
		"series":   lines,
		"average":  avg,
	})
}

func (s *Server) handleExportCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.eng.Ranking()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write csv"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.CSVFileName(s.now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleExportSummary(c *gin.Context) {
	c.String(http.StatusOK, export.Summary(s.eng.Ranking(), s.eng.Runtime()))
}

func (s *Server) handleGetSnapshot(c *gin.Context) {
	now := s.now()
	var buf bytes.Buffer
	if err := export.WriteDocument(&buf, s.eng.Snapshot(), now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode snapshot"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(now)+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

func (s *Server) handlePostSnapshot(c *gin.Context) {
	snap, err := export.ReadDocument(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.eng.Replace(snap, s.now())
	c.JSON(http.StatusOK, gin.H{
		"status": "imported",
		"state":  s.eng.State().String(),
		"rows":   len(s.eng.Ranking()),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	resp := gin.H{"status": "reset", "feed_cleared": s.status != nil}
	if err := s.eng.Reset(); err != nil {
		resp["feed_cleared"] = false
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
