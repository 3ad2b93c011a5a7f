// Package relay adapts the external publish/subscribe transport to the
// RelayGateway contract: a websocket JSON-RPC client for real relays
// and an in-process loopback hub for tests and demos.
package relay
