// Package session owns the host side of the serial link.
//
// Ownership boundary:
// - the cooperative poll loop (read, feed, decode, dispatch)
// - the outbound queue drained by that loop
// - reopen-on-failure supervision with backoff
//
// The frame buffer is owned by exactly one Link and is only touched from the
// goroutine running Link.Run; other goroutines hand messages over through the
// Outbox.
package session
