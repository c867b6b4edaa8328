// Package ws manages a persistent WebSocket session on top of the
// transport socket capability.
//
// A Session moves through four states:
//
//	disconnected -> connecting -> connected -> disconnecting -> disconnected
//
// Each transition is published on the session's Broadcaster before any
// timer is started or stopped, so a subscriber registered before Connect
// observes the transitions in order. Incoming frames are published as
// message events by a receive loop that lives as long as the socket.
//
// Features:
//   - Optional keep-alive pings; a missed pong is logged, never fatal
//   - Send (JSON through the codec) and SendFrame, accepted only while connected
//   - Reconnect to the last target with a bounded wait (default 10s)
//   - Await/WaitUntil over the cumulative event history of a subscription
//
// Example Usage:
//
//	target, _ := ws.FromRequest(api.Get("/stream"))
//	session := ws.NewSession(transport.NewGorillaDialer(logger), ws.DefaultConfig())
//	sub := session.Subscribe()
//	_ = session.Connect(ctx, target)
//	_, err := ws.Await(ctx, sub, ws.AnyState(ws.StateConnected), 10*time.Second)
package ws
