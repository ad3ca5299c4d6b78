package reqlog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memPersister struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memPersister) Persist(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
}

func testContext() *Context {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &Context{
		RequestID:      "1714557600000.000001",
		CallerApp:      "android",
		AppVersion:     NoVersion,
		APIName:        "claim/submit",
		Method:         "PUT",
		ClientIP:       "10.0.0.9",
		StartWallClock: start.Format(wallClockLayout),
		Start:          start,
		Body:           map[string]any{"claimID": "x"},
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "12.346ms", FormatElapsed(12345678*time.Nanosecond))
	assert.Equal(t, "0.000ms", FormatElapsed(0))
}

func TestBuild(t *testing.T) {
	ctx := testContext()
	end := ctx.Start.Add(1500 * time.Microsecond)

	rec := Build(ctx, 4000, 200, map[string]any{"message": "ok"}, false, end)
	assert.Equal(t, RecordType, rec.Type)
	assert.Equal(t, 4000, rec.Port)
	assert.Equal(t, "10:00:00.000", rec.APIDetail.Benchmark.StartTime)
	assert.Equal(t, "10:00:00.001", rec.APIDetail.Benchmark.EndTime)
	assert.Equal(t, "1.500ms", rec.APIDetail.Benchmark.ExecutionTime)
	assert.Empty(t, rec.AppVersion, "sentinel version is omitted")
	assert.Equal(t, ctx.Body, rec.APIDetail.Request)
	assert.False(t, rec.IsError())

	ctx.AppVersion = "21"
	rec = Build(ctx, 4000, 300, nil, false, end)
	assert.Equal(t, "21", rec.AppVersion)
	assert.True(t, rec.IsError())
	assert.False(t, rec.APIDetail.ResponseTruncated)

	rec = Build(ctx, 4000, 200, `{"data":`, true, end)
	assert.True(t, rec.APIDetail.ResponseTruncated)
}

func TestEmit_RoutesBySeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mem := &memPersister{}
	w := NewWriter(zap.New(core), 4000, mem)

	w.Emit(testContext(), 200, "OK", false)
	w.Emit(testContext(), 299, nil, false)
	w.Emit(testContext(), 300, nil, false)
	w.Emit(testContext(), 500, nil, false)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, RecordType, entries[0].Message)
	assert.Equal(t, "claim/submit", fields["apiName"])
	assert.Equal(t, "android", fields["auditPDetail"])
	assert.Equal(t, RecordType, fields["type"])
	assert.NotContains(t, fields, "appVersion")
	detail := fields["apiDetail"].(Detail)
	assert.Equal(t, 200, detail.StatusCode)
	assert.Equal(t, "OK", detail.Response)

	assert.Len(t, mem.recs, 4)
}

func TestEmit_NilContextIsNoop(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewWriter(zap.New(core), 4000)
	w.Emit(nil, 200, nil, false)
	assert.Zero(t, logs.Len())
}

type panicPersister struct{}

func (panicPersister) Persist(Record) { panic("disk gone") }

func TestEmit_NeverPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewWriter(zap.New(core), 4000, panicPersister{})
	assert.NotPanics(t, func() { w.Emit(testContext(), 200, nil, false) })
	assert.Equal(t, 1, logs.FilterMessage("api log emit failed").Len())
}
