// Package commands defines the pairlink CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - register   Publish your invite key and listen for proposals
//   - propose    Propose a relationship to a peer's invite key
//   - respond    Accept or reject a pending proposal
//   - send       Send a message on an active relationship
//   - terminate  End a relationship and discard its keys
//   - list       List active relationships
//   - listen     Print engine events until interrupted
//
// # Implementation
//
// The root command loads configuration and builds a dependency graph
// (stores, key manager, relay gateway, router, engine) before any
// subcommand runs, so handlers share one app context, and tears it
// down afterwards.
package commands
