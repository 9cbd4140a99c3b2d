package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wayfarergame/wayfarer/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxPayloadBytes caps stored request/response bodies. Upstream LLM
// responses can be large; the audit trail needs the shape, not the prose.
const maxPayloadBytes = 4096

// Entry holds one proxy request to be logged.
type Entry struct {
	TraceID        string
	Endpoint       string
	ClientIP       string
	UpstreamStatus int
	CacheHit       bool
	Request        []byte
	Response       []byte
	Error          string
	DurationMs     int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.ProxyAudit
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.ProxyAudit, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write. Never blocks the request
// path: when the channel is full the entry is dropped with a warning.
func (svc *Service) Log(entry Entry) {
	record := &model.ProxyAudit{
		TraceID:        entry.TraceID,
		Endpoint:       entry.Endpoint,
		ClientIP:       entry.ClientIP,
		UpstreamStatus: entry.UpstreamStatus,
		CacheHit:       entry.CacheHit,
		Request:        datatypes.JSON(truncateJSON(entry.Request)),
		Response:       datatypes.JSON(truncateJSON(entry.Response)),
		Error:          entry.Error,
		DurationMs:     entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("endpoint", entry.Endpoint))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

// Sweep deletes audit rows older than the retention window.
func (svc *Service) Sweep(retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	res := svc.db.Where("created_at < ?", cutoff).Delete(&model.ProxyAudit{})
	if res.Error != nil {
		svc.logger.Error("audit retention sweep failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		svc.logger.Info("audit retention sweep",
			zap.Int64("deleted", res.RowsAffected))
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.ProxyAudit, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// truncateJSON bounds a payload for storage, keeping the column valid JSON.
func truncateJSON(data []byte) []byte {
	if len(data) == 0 {
		return []byte("null")
	}
	if len(data) <= maxPayloadBytes {
		if json.Valid(data) {
			return data
		}
	}
	truncated := data
	if len(truncated) > maxPayloadBytes {
		truncated = truncated[:maxPayloadBytes]
	}
	quoted, _ := json.Marshal(string(truncated))
	return quoted
}
