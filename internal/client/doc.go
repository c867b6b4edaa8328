/*
Package client builds HTTP requests and dispatches them with a single
credential refresh retry.

A Client holds the shared configuration: base URL, credential store,
transport, default codec options and logging. Requests are immutable values
created from it and refined with With methods:

	c, err := client.New(client.Config{BaseURL: "https://api.example.com", Store: store})

	req := c.Post("/users").WithBody(NewUser{FirstName: "Ada"})
	res, err := client.Dispatch[User](ctx, c, req)

Dispatch sends the request once. On 401 or 403 it asks the store for new
credentials and, if it gets any, sends the request once more with the new
bearer token. Errors are typed: ErrInvalidURL, *EncodeError, *TransportError,
*ServiceError and *DecodeError.
*/
package client
