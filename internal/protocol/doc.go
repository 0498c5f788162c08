// Package protocol owns the serial wire contract and its parsing primitives.
//
// Ownership boundary:
// - typed message elements and messages
// - frame encoding (MSG_START, elements, MSG_END)
// - span decoding into elements
// - structural (kind-only) message matching
//
// Frame boundary detection over a byte stream lives in protocol/frame; the
// polling loop over a transport lives in protocol/session.
package protocol
