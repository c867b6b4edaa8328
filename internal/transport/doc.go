/*
Package transport implements the network capabilities the client and the
WebSocket session consume.

HTTP requests go through resty on top of the pooled transport from
go-retryablehttp, with a token bucket rate limiter and an optional circuit
breaker. Neither layer retries; the dispatcher owns the single credential
refresh retry.

Sockets are opened with gorilla/websocket. Open is non-blocking: the
handshake runs in the background and its outcome is reported through
SocketHandlers, so callers can publish a connecting state before the
connection exists.
*/
package transport
