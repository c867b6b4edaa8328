/*
Package resilience provides the circuit breaker that guards the HTTP transport.

The breaker is closed during normal operation. Once ReadyToTrip approves a
failure it opens and rejects calls with ErrCircuitOpen until Timeout elapses,
then lets MaxRequests probes through while half-open:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           v
	                                         Open

Calls can be guarded in one step with Do, or in two steps with Allow when the
outcome is only known after inspecting a response:

	done, err := breaker.Allow()
	if err != nil {
		return err
	}
	resp, err := send()
	done(err == nil && resp.StatusCode < 500)
*/
package resilience
