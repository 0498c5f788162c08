package protocol

import "errors"

var (
	ErrUnknownCode = errors.New("protocol: code not in table")
	ErrBadToken    = errors.New("protocol: malformed element token")

	// ErrStructuralCode rejects a Code element naming a framing byte or a
	// type tag; written bare it would end the frame or swallow a payload.
	ErrStructuralCode = errors.New("protocol: structural code used as element")
)
