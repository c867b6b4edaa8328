// Package config provides 12-factor configuration for the netkit toolkit.
//
// Values are layered: Default, then an optional YAML or TOML file, then
// environment variables.
//
// Configuration Sections:
//   - Client: base URL, timeout, user agent and exchange log mode
//   - Auth: static token or client-credentials refresh
//   - Logging: log level and output format
//   - RateLimit: client-side request rate
//   - Breaker: circuit breaker around the HTTP transport
//   - WebSocket: keep-alive and reconnect timing
//   - Metrics: Prometheus listen address
//
// Example Usage:
//
//	cfg, err := config.LoadFile("netkit.yaml")
//	if err == nil {
//	    err = cfg.Validate()
//	}
//
// Environment Variables:
//   - NETKIT_BASE_URL, NETKIT_TIMEOUT, NETKIT_USER_AGENT, NETKIT_LOG_MODE
//   - NETKIT_ACCESS_TOKEN, NETKIT_TOKEN_PATH, NETKIT_CLIENT_ID, NETKIT_CLIENT_SECRET
//   - NETKIT_LOG_LEVEL, NETKIT_LOG_DEV
//   - NETKIT_RATE_LIMIT_RPS, NETKIT_RATE_LIMIT_ENABLED
//   - NETKIT_BREAKER_ENABLED, NETKIT_BREAKER_FAILURES, NETKIT_BREAKER_TIMEOUT
//   - NETKIT_WS_PING_INTERVAL, NETKIT_WS_PONG_TIMEOUT, NETKIT_WS_RECONNECT_TIMEOUT
//   - NETKIT_METRICS_ADDR
package config
