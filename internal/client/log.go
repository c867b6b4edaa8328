package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

const maxLoggedBody = 4096

func (x *exchange) logRequest(req *transport.Request) {
	if x.mode != logging.ModeRaw {
		return
	}
	x.client.cfg.Logger.Info("HTTP request",
		zap.String("request_id", x.id.String()),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Any("headers", redact(req.Header)),
		zap.String("body", truncate(req.Body)))
}

func (x *exchange) logResponse(req *transport.Request, resp *transport.Response, elapsed time.Duration) {
	if x.mode == logging.ModeNone {
		return
	}
	logger := x.client.cfg.Logger
	fields := []zap.Field{
		zap.String("request_id", x.id.String()),
		zap.String("method", req.Method),
		zap.String("path", pathOf(req.URL)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	}
	if x.mode == logging.ModeRaw {
		fields = append(fields,
			zap.Any("headers", resp.Header),
			zap.String("mime", mimetype.Detect(resp.Body).String()),
			zap.Int("size", len(resp.Body)),
			zap.String("body", truncate(resp.Body)))
	}

	if isSuccess(resp.StatusCode) {
		logger.Info("HTTP response", fields...)
	} else {
		logger.Warn("HTTP response", fields...)
	}
}

func (x *exchange) logFailure(req *transport.Request, err error) {
	if x.mode == logging.ModeNone {
		return
	}
	x.client.cfg.Logger.Error("HTTP request failed",
		zap.String("request_id", x.id.String()),
		zap.String("method", req.Method),
		zap.String("path", pathOf(req.URL)),
		zap.Error(err))
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "…"
	}
	return string(body)
}

// redact hides credentials in logged headers.
func redact(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			out[k] = []string{"[redacted]"}
			continue
		}
		out[k] = v
	}
	return out
}
