package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProxyAudit records one forwarded proxy request, for abuse review and
// upstream cost accounting.
type ProxyAudit struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID        string         `gorm:"index:idx_proxy_audit_trace;size:36;not null" json:"trace_id"`
	Endpoint       string         `gorm:"size:64;not null" json:"endpoint"`
	ClientIP       string         `gorm:"size:45" json:"client_ip"`
	UpstreamStatus int            `json:"upstream_status"`
	CacheHit       bool           `json:"cache_hit"`
	Request        datatypes.JSON `json:"request"`
	Response       datatypes.JSON `json:"response"`
	Error          string         `gorm:"type:text" json:"error"`
	DurationMs     int            `json:"duration_ms"`
	CreatedAt      time.Time      `gorm:"index:idx_proxy_audit_created;autoCreateTime:milli" json:"created_at"`
}
