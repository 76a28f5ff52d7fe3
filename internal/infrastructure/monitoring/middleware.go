package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures operation duration
type Timer struct {
	start time.Time
	size  int64
	stop  func(status string, d time.Duration, size int64)
}

// NewBuildTimer creates a timer that records a build on Stop
func NewBuildTimer(metrics *Metrics) *Timer {
	return &Timer{
		start: time.Now(),
		stop:  metrics.RecordBuild,
	}
}

// NewLoadTimer creates a timer that records a load on Stop
func NewLoadTimer(metrics *Metrics) *Timer {
	return &Timer{
		start: time.Now(),
		stop: func(status string, d time.Duration, _ int64) {
			metrics.RecordLoad(status, d)
		},
	}
}

// SetSize attaches a byte count reported on Stop
func (t *Timer) SetSize(n int64) {
	t.size = n
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	t.stop(status, d, t.size)
	return d
}
