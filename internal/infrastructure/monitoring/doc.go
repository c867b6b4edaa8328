/*
Package monitoring provides Prometheus metrics for HTTP dispatch and WebSocket
sessions.

Collectors are registered on a private registry rather than the global one, so
several clients can coexist in one process and tests can inspect values with
prometheus/testutil.

# Usage

	metrics := monitoring.NewMetrics()

	timer := monitoring.NewTimer(metrics, "GET")
	// ... send request ...
	timer.Stop(resp.StatusCode, len(resp.Body))

	http.Handle("/metrics", metrics.Handler())

A nil *Metrics is valid and records nothing.
*/
package monitoring
