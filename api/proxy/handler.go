package proxy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wayfarergame/wayfarer/audit"
	"github.com/wayfarergame/wayfarer/cache"
	"github.com/wayfarergame/wayfarer/config"
	mw "github.com/wayfarergame/wayfarer/middleware"
	"go.uber.org/zap"
)

const fieldMaskHeader = "X-Goog-FieldMask"

// Handler forwards mobile-client requests to third-party APIs, injecting
// the server-held keys. Upstream status and body pass through verbatim so
// the app sees exactly what the upstream said.
type Handler struct {
	cfg        config.ProxyConfig
	httpClient *http.Client
	cache      cache.Cache
	audit      *audit.Service
	logger     *zap.Logger
}

// NewHandler creates a proxy Handler.
func NewHandler(cfg config.ProxyConfig, c cache.Cache, auditSvc *audit.Service, logger *zap.Logger) *Handler {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		audit:      auditSvc,
		logger:     logger,
	}
}

// OpenRouter handles POST /api/openrouter: forwards the chat-completions
// body with the server's bearer key.
func (h *Handler) OpenRouter(c *gin.Context) {
	start := time.Now()
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	status, respBody, err := h.forward(c.Request.Context(), h.cfg.OpenRouterURL, body, map[string]string{
		"Authorization": "Bearer " + h.cfg.OpenRouterKey,
	})
	h.logAudit(c, "openrouter", status, false, body, respBody, err, start)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unreachable"})
		return
	}
	c.Data(status, "application/json", respBody)
}

// PlacesSearch handles POST /api/places-search: forwards the text-search
// body with the server's API key and the caller-supplied field mask.
// Successful responses are cached briefly; place data for a given query
// does not change second to second and the upstream bills per request.
func (h *Handler) PlacesSearch(c *gin.Context) {
	start := time.Now()
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	fieldMask := c.GetHeader(fieldMaskHeader)
	key := placesCacheKey(body, fieldMask)
	if cached, err := h.cache.Get(c.Request.Context(), key); err == nil {
		h.logAudit(c, "places-search", http.StatusOK, true, body, []byte(cached), nil, start)
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	headers := map[string]string{"X-Goog-Api-Key": h.cfg.PlacesKey}
	if fieldMask != "" {
		headers[fieldMaskHeader] = fieldMask
	}
	status, respBody, err := h.forward(c.Request.Context(), h.cfg.PlacesURL, body, headers)
	h.logAudit(c, "places-search", status, false, body, respBody, err, start)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unreachable"})
		return
	}
	if status == http.StatusOK && h.cfg.PlacesCacheTTL > 0 {
		if err := h.cache.Set(c.Request.Context(), key, string(respBody), h.cfg.PlacesCacheTTL); err != nil {
			h.logger.Warn("places cache write failed", zap.Error(err))
		}
	}
	c.Data(status, "application/json", respBody)
}

// MethodNotAllowed is the NoMethod handler: the proxy endpoints accept
// POST only.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	limit := h.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	if int64(len(body)) > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return nil, false
	}
	return body, true
}

func (h *Handler) forward(ctx context.Context, url string, body []byte, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func (h *Handler) logAudit(c *gin.Context, endpoint string, status int, cacheHit bool, reqBody, respBody []byte, err error, start time.Time) {
	entry := audit.Entry{
		TraceID:        mw.GetTraceID(c),
		Endpoint:       endpoint,
		ClientIP:       c.ClientIP(),
		UpstreamStatus: status,
		CacheHit:       cacheHit,
		Request:        reqBody,
		Response:       respBody,
		DurationMs:     int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
		h.logger.Warn("proxy upstream error",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}
	h.audit.Log(entry)
}

func placesCacheKey(body []byte, fieldMask string) string {
	sum := sha256.Sum256(append(append([]byte{}, body...), []byte("\x00"+fieldMask)...))
	return "places:" + hex.EncodeToString(sum[:])
}
