package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"synapse/internal/analysis"
	"synapse/internal/analysis/visual"
	"synapse/internal/decision"
	"synapse/internal/logger"
	"synapse/internal/market"
	"synapse/internal/series"
	"synapse/internal/session"
)

type handlers struct {
	analyzer Analyzer
	schemas  payloadSchemas
}

func success(c *gin.Context, payload gin.H) {
	payload["status"] = "success"
	c.JSON(http.StatusOK, payload)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"status": "error", "message": msg})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *analysis.FetchError
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest),
		errors.Is(err, series.ErrTooFewCandles),
		errors.Is(err, series.ErrNoCandleAtOrBefore),
		errors.Is(err, series.ErrIndexOutOfRange),
		errors.Is(err, series.ErrInsufficientWarmup),
		errors.Is(err, session.ErrNotFound):
		return http.StatusBadRequest
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func message(err error) string {
	return strings.TrimPrefix(err.Error(), analysis.ErrInvalidRequest.Error()+": ")
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) timeframes(c *gin.Context) {
	success(c, gin.H{"timeframes": market.SupportedTimeframes()})
}

func (h *handlers) analyze(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read request body")
		return
	}
	if err := validatePayload(h.schemas.analysis, raw); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	var req analysis.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Errorf("analysis %s failed: %v", req.Symbol, err)
		}
		fail(c, status, message(err))
		return
	}
	success(c, gin.H{
		"candle_count":       res.CandleCount,
		"decision_timestamp": timestamp(res.DecisionTime),
		"decision_idx":       res.DecisionIdx,
		"symbol":             res.Symbol,
		"timeframe":          res.Timeframe,
		"decision":           res.Record,
		"session_id":         res.SessionID,
		"chart_url":          "/api/chart/" + res.SessionID + "?idx=" + strconv.Itoa(res.DecisionIdx),
	})
}

func (h *handlers) redecide(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read request body")
		return
	}
	if err := validatePayload(h.schemas.redecision, raw); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	idx, err := decisionIndex(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(raw, &body)

	red, err := h.analyzer.Redecide(body.SessionID, idx)
	if err != nil {
		fail(c, statusFor(err), message(err))
		return
	}
	success(c, gin.H{
		"decision":           red.Record,
		"decision_idx":       red.DecisionIdx,
		"decision_timestamp": timestamp(red.DecisionTime),
	})
}

// chart renders the cached series. ?idx= selects the marked bar (default
// last); ?format=png screenshots it through headless Chrome.
func (h *handlers) chart(c *gin.Context) {
	sess, err := h.analyzer.Session(c.Param("session_id"))
	if err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	idx := sess.Series.Len() - 1
	if raw := strings.TrimSpace(c.Query("idx")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= sess.Series.Len() {
			fail(c, http.StatusBadRequest, "idx must be a bar index within the series")
			return
		}
		idx = n
	}
	in := visual.ChartInput{Series: sess.Series, DecisionIdx: idx}
	if rec, err := series.Decide(sess.Series, idx, sess.Config); err == nil {
		in.Record = &rec
	} else {
		in.Record = &decision.Record{Decision: decision.ResultNoTrade, Direction: decision.DirectionNone, Reason: err.Error()}
	}
	html, err := visual.RenderHTML(in)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if strings.EqualFold(c.Query("format"), "png") {
		png, err := visual.RenderPNG(c.Request.Context(), html)
		if err != nil {
			logger.Warnf("chart png for %s: %v", sess.ID, err)
			fail(c, http.StatusServiceUnavailable, "png rendering unavailable")
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
