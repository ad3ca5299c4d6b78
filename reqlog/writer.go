package reqlog

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordType tags every API log record.
const RecordType = "auditApi"

const timeStampLayout = "2006-01-02 15:04:05.000"

// Benchmark is the timing section of a record.
type Benchmark struct {
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	ExecutionTime string `json:"executionTime"`
}

// Detail is the request/response section of a record. ResponseTruncated
// marks a Response that is a raw prefix of the sent body rather than the
// parsed payload.
type Detail struct {
	StatusCode        int       `json:"statusCode"`
	Request           any       `json:"request"`
	Response          any       `json:"response"`
	ResponseTruncated bool      `json:"responseTruncated,omitempty"`
	Benchmark         Benchmark `json:"benchmark"`
}

// Record is one append-only API log entry.
type Record struct {
	TimeStamp  string        `json:"timeStamp"`
	RequestID  string        `json:"requestId"`
	TraceID    string        `json:"traceId,omitempty"`
	APIName    string        `json:"apiName"`
	Method     string        `json:"method"`
	Port       int           `json:"port"`
	Type       string        `json:"type"`
	APIDetail  Detail        `json:"apiDetail"`
	CallerApp  string        `json:"auditPDetail"`
	AppVersion string        `json:"appVersion,omitempty"`
	ClientIP   string        `json:"ip"`
	Elapsed    time.Duration `json:"-"`
}

// IsError reports whether the record belongs in the error sink.
func (r Record) IsError() bool { return r.APIDetail.StatusCode >= 300 }

// FormatElapsed renders d as milliseconds with three decimals and a unit.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

// Build merges the audit context with the response outcome. truncated
// reports that response holds only a prefix of the sent body.
func Build(ctx *Context, port, status int, response any, truncated bool, end time.Time) Record {
	elapsed := end.Sub(ctx.Start)
	rec := Record{
		TimeStamp: end.Format(timeStampLayout),
		RequestID: ctx.RequestID,
		TraceID:   ctx.TraceID,
		APIName:   ctx.APIName,
		Method:    ctx.Method,
		Port:      port,
		Type:      RecordType,
		APIDetail: Detail{
			StatusCode:        status,
			Request:           ctx.Body,
			Response:          response,
			ResponseTruncated: truncated,
			Benchmark: Benchmark{
				StartTime:     ctx.StartWallClock,
				EndTime:       end.Format(wallClockLayout),
				ExecutionTime: FormatElapsed(elapsed),
			},
		},
		CallerApp: ctx.CallerApp,
		ClientIP:  ctx.ClientIP,
		Elapsed:   elapsed,
	}
	if ctx.AppVersion != NoVersion {
		rec.AppVersion = ctx.AppVersion
	}
	return rec
}

// Persister receives a copy of every emitted record. Implementations must
// not block.
type Persister interface {
	Persist(rec Record)
}

// Writer emits API log records to a zap sink, info for status < 300 and
// error otherwise, then hands them to any persisters.
type Writer struct {
	logger     *zap.Logger
	port       int
	persisters []Persister
	now        func() time.Time
}

// NewWriter creates a Writer. logger is the dedicated API log sink.
func NewWriter(logger *zap.Logger, port int, persisters ...Persister) *Writer {
	return &Writer{logger: logger, port: port, persisters: persisters, now: time.Now}
}

// Emit writes the record for a completed request. It never panics and
// never returns an error: the response has already been sent.
func (w *Writer) Emit(ctx *Context, status int, response any, truncated bool) {
	if ctx == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("api log emit failed",
				zap.String("requestId", ctx.RequestID),
				zap.Any("recover", r))
		}
	}()

	rec := Build(ctx, w.port, status, response, truncated, w.now())
	fields := []zap.Field{
		zap.String("timeStamp", rec.TimeStamp),
		zap.String("requestId", rec.RequestID),
		zap.String("apiName", rec.APIName),
		zap.String("method", rec.Method),
		zap.Int("port", rec.Port),
		zap.String("type", rec.Type),
		zap.Any("apiDetail", rec.APIDetail),
		zap.String("auditPDetail", rec.CallerApp),
		zap.String("ip", rec.ClientIP),
	}
	if rec.TraceID != "" {
		fields = append(fields, zap.String("traceId", rec.TraceID))
	}
	if rec.AppVersion != "" {
		fields = append(fields, zap.String("appVersion", rec.AppVersion))
	}
	if rec.IsError() {
		w.logger.Error(RecordType, fields...)
	} else {
		w.logger.Info(RecordType, fields...)
	}

	for _, p := range w.persisters {
		p.Persist(rec)
	}
}
