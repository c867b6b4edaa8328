// Package app wires the toolkit together from configuration.
//
// Key Components:
//   - Toolkit: logger, metrics, credential store, HTTP client and socket dialer
//   - Credential refresh through the client-credentials grant when a client id is configured
//   - Optional circuit breaker and rate limiting on the HTTP transport
//   - WebSocket sessions and targets sharing the client's credentials
//
// Example Usage:
//
//	tk, err := app.New(config.LoadOrDefault())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tk.Close()
//	res, err := client.Dispatch[User](ctx, tk.Client, tk.Client.Get("/users/42"))
package app
