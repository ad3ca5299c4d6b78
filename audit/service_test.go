package audit

import (
	"context"
	"testing"
	"time"

	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/dentscan/dentclaim/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func sampleRecord(id string, status int) reqlog.Record {
	return reqlog.Record{
		RequestID: id,
		TraceID:   "trace-" + id,
		APIName:   "claim/submit",
		Method:    "PUT",
		Port:      4000,
		Type:      reqlog.RecordType,
		APIDetail: reqlog.Detail{
			StatusCode: status,
			Request:    map[string]any{"claimID": "abc"},
			Response:   map[string]any{"message": "Claim submit successfully"},
			Benchmark:  reqlog.Benchmark{StartTime: "10:00:00.000", EndTime: "10:00:00.012", ExecutionTime: "12.000ms"},
		},
		CallerApp: "android",
		ClientIP:  "127.0.0.1",
		Elapsed:   12 * time.Millisecond,
	}
}

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestPersist_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	svc.Persist(sampleRecord("1.000001", 200))

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var logs []model.APILog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "1.000001", logs[0].RequestID)
	assert.Equal(t, "trace-1.000001", logs[0].TraceID)
	assert.Equal(t, "claim/submit", logs[0].APIName)
	assert.Equal(t, 200, logs[0].StatusCode)
	assert.Equal(t, "12.000ms", logs[0].ExecutionTime)
	assert.InDelta(t, 12.0, logs[0].DurationMs, 0.001)
	assert.JSONEq(t, `{"claimID":"abc"}`, string(logs[0].Request))
	assert.JSONEq(t, `{"message":"Claim submit successfully"}`, string(logs[0].Response))
}

func TestPersist_MultipleRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	for i := 0; i < 150; i++ {
		svc.Persist(sampleRecord(time.Now().Format("150405.000000"), 200))
	}
	svc.Stop(context.Background())

	var count int64
	require.NoError(t, db.Model(&model.APILog{}).Count(&count).Error)
	assert.Equal(t, int64(150), count)
}

func TestPersist_NilBodies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	rec := sampleRecord("2.000001", 404)
	rec.APIDetail.Request = nil
	rec.APIDetail.Response = nil
	svc.Persist(rec)
	svc.Stop(context.Background())

	var row model.APILog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, 404, row.StatusCode)
	assert.Empty(t, row.Request)
}

func TestPersist_TruncatedResponseFlag(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())

	rec := sampleRecord("3.000001", 200)
	rec.APIDetail.Response = `{"data":[{"id":`
	rec.APIDetail.ResponseTruncated = true
	svc.Persist(rec)
	svc.Stop(context.Background())

	var row model.APILog
	require.NoError(t, db.First(&row).Error)
	assert.True(t, row.Truncated)
}

func TestPersist_AfterStopIsDropped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())
	svc.Stop(context.Background())

	svc.Persist(sampleRecord("3.000001", 200))

	var count int64
	require.NoError(t, db.Model(&model.APILog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStop_Idempotent(t *testing.T) {
	svc := New(testutil.SetupTestDB(t), nop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())
}

func TestPruneBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nop())
	defer svc.Stop(context.Background())

	old := &model.APILog{RequestID: "old", APIName: "x", CreatedAt: time.Now().AddDate(0, 0, -40)}
	fresh := &model.APILog{RequestID: "fresh", APIName: "x"}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(fresh).Error)

	n, err := svc.PruneBefore(context.Background(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []model.APILog
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].RequestID)
}
