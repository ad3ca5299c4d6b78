// Package audit persists API log records to the database in batches.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Service writes API log records asynchronously in batches.
type Service struct {
	db       *gorm.DB
	ch       chan *model.APILog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.APILog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

func marshal(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// Persist enqueues rec for async DB write. It drops the record rather than
// block when the queue is full.
func (svc *Service) Persist(rec reqlog.Record) {
	row := &model.APILog{
		RequestID:     rec.RequestID,
		TraceID:       rec.TraceID,
		APIName:       rec.APIName,
		Method:        rec.Method,
		Port:          rec.Port,
		Type:          rec.Type,
		StatusCode:    rec.APIDetail.StatusCode,
		Request:       marshal(rec.APIDetail.Request),
		Response:      marshal(rec.APIDetail.Response),
		Truncated:     rec.APIDetail.ResponseTruncated,
		StartTime:     rec.APIDetail.Benchmark.StartTime,
		EndTime:       rec.APIDetail.Benchmark.EndTime,
		ExecutionTime: rec.APIDetail.Benchmark.ExecutionTime,
		DurationMs:    float64(rec.Elapsed) / float64(time.Millisecond),
		CallerApp:     rec.CallerApp,
		AppVersion:    rec.AppVersion,
		ClientIP:      rec.ClientIP,
	}
	select {
	case <-svc.stopCh:
		return
	default:
	}
	select {
	case svc.ch <- row:
	default:
		svc.logger.Warn("api log queue full, dropping record",
			zap.String("requestId", rec.RequestID),
			zap.String("apiName", rec.APIName))
	}
}

// PruneBefore deletes persisted records created before cutoff.
func (svc *Service) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := svc.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.APILog{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		svc.logger.Info("api logs pruned",
			zap.Int64("rows", res.RowsAffected),
			zap.Time("before", cutoff))
	}
	return res.RowsAffected, nil
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.APILog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("api log batch write failed",
				zap.Int("records", len(batch)),
				zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-svc.ch:
			batch = append(batch, row)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case row := <-svc.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
