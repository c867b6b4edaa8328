// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// It also defines Mode, the per-client and per-request switch that decides
// how much of each HTTP exchange is logged (none, normal, raw).
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	logger.Info("Dispatching request", zap.String("path", "/users"))
//	logger.Error("Failed to connect", zap.Error(err))
package logging
