// Package engine implements the relationship lifecycle on top of the
// router: proposing to a peer's published key, settling inbound
// proposals, exchanging messages on derived channel topics, and
// terminating. One Engine instance serves one protocol.
package engine
