package monitoring

import "time"

// Timer measures one request.
type Timer struct {
	start   time.Time
	metrics *Metrics
	method  string
}

// NewTimer starts timing a request with the given method.
func NewTimer(metrics *Metrics, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		method:  method,
	}
}

// Stop records the request with its status and response size and returns
// the elapsed time.
func (t *Timer) Stop(status, respSize int) time.Duration {
	elapsed := time.Since(t.start)
	t.metrics.RecordRequest(t.method, status, elapsed, respSize)
	return elapsed
}
