// Package query holds query-string state and the flattening of request models
// into query items for GET and DELETE requests and form bodies.
package query
