package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"synapse/internal/analysis"
	"synapse/internal/logger"
	"synapse/internal/metrics"
	"synapse/internal/session"
)

// Analyzer is the analysis pipeline the handlers drive.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
	Redecide(sessionID string, idx int) (analysis.Redecision, error)
	Session(id string) (session.Session, error)
}

// Server serves the analysis API.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr     string
	Analyzer Analyzer
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Registry
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("api server requires an analyzer")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Metrics))

	h := &handlers{analyzer: cfg.Analyzer, schemas: schemas}
	api := router.Group("/api")
	api.GET("/health", h.health)
	api.GET("/timeframes", h.timeframes)
	api.POST("/chart", h.analyze)
	api.POST("/decision", h.redecide)
	api.GET("/chart/:session_id", h.chart)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger logs each request at debug level and records its latency.
func requestLogger(reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		if reg != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			reg.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(dur.Seconds())
		}
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("api listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
