// Package main is a small command line client built on the netkit toolkit.
//
// It sends authenticated HTTP requests through the refreshing dispatcher
// and opens WebSocket sessions that print incoming frames.
//
// Configuration:
//   - Environment variables (NETKIT_*)
//   - An optional YAML or TOML file (-config)
//   - CLI flags (override both)
//
// Usage:
//
//	# GET and print the body
//	netkit -base https://api.example.com get /users/42
//
//	# POST a JSON body, logging full exchanges
//	netkit -raw post /users '{"name":"ada"}'
//
//	# Stream a WebSocket; stdin lines are sent as text frames
//	netkit -config netkit.yaml ws /events
//
// Signals:
//   - SIGINT, SIGTERM: disconnect and exit
package main
