package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/robolink/internal/protocol/codes"
)

// ParseTokens builds a message from command-line style tokens: a bare code
// name ("PID"), or a typed number "f:1.5", "u:3", "i:-2".
func ParseTokens(t *codes.Table, tokens []string) (Message, error) {
	msg := make(Message, 0, len(tokens))
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		prefix, value, typed := strings.Cut(tok, ":")
		if !typed {
			c := codes.Code(strings.ToUpper(tok))
			if codes.IsStructural(c) {
				return nil, fmt.Errorf("%w: %q", ErrStructuralCode, tok)
			}
			if _, ok := t.Byte(c); !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCode, tok)
			}
			msg = append(msg, CodeElem(c))
			continue
		}
		e, err := parseNumber(strings.ToLower(prefix), value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadToken, tok, err)
		}
		msg = append(msg, e)
	}
	return msg, nil
}

func parseNumber(prefix, value string) (Element, error) {
	switch prefix {
	case "f":
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return Element{}, err
		}
		return F32(float32(v)), nil
	case "u":
		v, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return Element{}, err
		}
		return U32(uint32(v)), nil
	case "i":
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return Element{}, err
		}
		return I32(int32(v)), nil
	default:
		return Element{}, fmt.Errorf("unknown kind prefix %q", prefix)
	}
}
