// Package codes owns the single-byte message code table shared with the
// controller firmware.
//
// Ownership boundary:
// - symbolic code names and the structural/semantic split
// - schema parsing (TOML, YAML) and bijectivity validation
// - total byte-to-code lookup
package codes
