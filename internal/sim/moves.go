package sim

import (
	"errors"
	"fmt"
	"strings"
)

// MaxMoves caps the expanded length of a decoded replay. Anything a human
// can produce on a published level fits well under it; anything over it is
// either a bug or an abuse attempt.
const MaxMoves = 10000

var (
	ErrMalformedReplay = errors.New("malformed replay")
	ErrMalformedLevel  = errors.New("malformed level")
)

// DecodeMoves expands a compact replay string into one lowercase letter per
// step. The grammar is a concatenation of tokens, each an optional positive
// run length followed by one of u/d/l/r, case-insensitive: "6d2r" expands to
// "ddddddrr". Any character outside the grammar, a zero run length, an empty
// result, or an expansion over MaxMoves rejects the whole replay.
func DecodeMoves(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty replay", ErrMalformedReplay)
	}

	var out strings.Builder
	i := 0
	for i < len(s) {
		count := 0
		digits := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			count = count*10 + int(s[i]-'0')
			if count > MaxMoves {
				return "", fmt.Errorf("%w: replay exceeds %d moves", ErrMalformedReplay, MaxMoves)
			}
			digits++
			i++
		}
		if digits > 0 && count == 0 {
			return "", fmt.Errorf("%w: run length must be positive", ErrMalformedReplay)
		}
		if digits == 0 {
			count = 1
		}
		if i >= len(s) {
			return "", fmt.Errorf("%w: run length without a direction", ErrMalformedReplay)
		}
		dir := s[i]
		switch dir {
		case 'u', 'd', 'l', 'r':
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrMalformedReplay, dir)
		}
		i++
		if out.Len()+count > MaxMoves {
			return "", fmt.Errorf("%w: replay exceeds %d moves", ErrMalformedReplay, MaxMoves)
		}
		for j := 0; j < count; j++ {
			out.WriteByte(dir)
		}
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("%w: empty replay", ErrMalformedReplay)
	}
	return out.String(), nil
}
