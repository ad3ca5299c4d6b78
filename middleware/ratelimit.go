package middleware

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweep = 5 * time.Minute
	limiterIdle  = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// limiterKey separates the mobile and web clients behind one address.
func limiterKey(c *gin.Context) string {
	app := c.GetHeader(reqlog.HeaderCallerApp)
	if app == "" {
		return c.ClientIP()
	}
	return c.ClientIP() + "|" + app
}

// RateLimit is a token bucket per client address and calling app.
// r = requests per second, b = burst size. Rejected requests carry
// Retry-After in whole seconds.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	buckets := &sync.Map{}

	go func() {
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-limiterIdle).UnixNano()
			buckets.Range(func(k, v any) bool {
				if v.(*bucket).lastSeen.Load() < cutoff {
					buckets.Delete(k)
				}
				return true
			})
		}
	}()

	return func(c *gin.Context) {
		v, _ := buckets.LoadOrStore(limiterKey(c), &bucket{limiter: rate.NewLimiter(r, b)})
		bk := v.(*bucket)
		now := time.Now()
		bk.lastSeen.Store(now.UnixNano())

		res := bk.limiter.ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			if res.OK() {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			}
			Fail(c, apperr.TooManyRequests())
			return
		}
		c.Next()
	}
}
