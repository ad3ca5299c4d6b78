package model

import (
	"time"

	"gorm.io/datatypes"
)

// APILogType is the fixed type tag of API log records.
const APILogType = "auditApi"

// APILog is the persisted form of one request/response audit record.
type APILog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID     string         `gorm:"index:idx_apilog_request;size:32;not null" json:"requestId"`
	TraceID       string         `gorm:"index:idx_apilog_trace;size:36" json:"traceId"`
	APIName       string         `gorm:"size:255;not null" json:"apiName"`
	Method        string         `gorm:"size:8" json:"method"`
	Port          int            `json:"port"`
	Type          string         `gorm:"size:16" json:"type"`
	StatusCode    int            `gorm:"index:idx_apilog_status" json:"statusCode"`
	Request       datatypes.JSON `json:"request"`
	Response      datatypes.JSON `json:"response"`
	Truncated     bool           `json:"responseTruncated"`
	StartTime     string         `gorm:"size:16" json:"startTime"`
	EndTime       string         `gorm:"size:16" json:"endTime"`
	ExecutionTime string         `gorm:"size:24" json:"executionTime"`
	DurationMs    float64        `json:"durationMs"`
	CallerApp     string         `gorm:"size:64" json:"auditPDetail"`
	AppVersion    string         `gorm:"size:32" json:"appVersion,omitempty"`
	ClientIP      string         `gorm:"size:45" json:"ip"`
	CreatedAt     time.Time      `gorm:"index:idx_apilog_created" json:"createdAt"`
}
