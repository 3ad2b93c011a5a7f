// Package rpc correlates JSON-RPC traffic over encrypted relay topics:
// id allocation, response matching, and duplicate-delivery suppression
// backed by the persisted history.
package rpc
