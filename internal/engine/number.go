package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/franz/manga-mirror/internal/util"
)

// Number is a normalized chapter number. Chapter identifiers arrive as
// raw tokens ("15", "15.0", "100.5") and are compared numerically, so
// "15.0" and "15" are the same chapter.
type Number float64

// ParseNumber normalizes a raw chapter token. Returns
// util.ErrInvalidIdentifier when the token is not a finite number;
// callers skip such items instead of aborting.
func ParseNumber(token string) (Number, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("%w: empty token", util.ErrInvalidIdentifier)
	}

	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", util.ErrInvalidIdentifier, token)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: %q", util.ErrInvalidIdentifier, token)
	}

	return Number(f), nil
}

// String returns the canonical storage form: integral values lose their
// fractional part ("15.0" -> "15"), fractional values keep it ("100.5").
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Key returns the numeric comparison key
func (n Number) Key() float64 {
	return float64(n)
}
