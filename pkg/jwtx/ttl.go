package jwtx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTTL = errors.New("jwtx: invalid ttl")

// ParseTTL parses a lifetime such as "900", "30s", "15m", "2h" or "7d". A bare
// number is seconds. Anything else time.ParseDuration understands is accepted
// as a fallback ("1h30m").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTTL)
	}

	unit := time.Second
	num := s
	switch s[len(s)-1] {
	case 's':
		num = s[:len(s)-1]
	case 'm':
		unit, num = time.Minute, s[:len(s)-1]
	case 'h':
		unit, num = time.Hour, s[:len(s)-1]
	case 'd':
		unit, num = 24*time.Hour, s[:len(s)-1]
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil || d <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTTL, s)
		}
		return d, nil
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTTL, s)
	}

	return time.Duration(n) * unit, nil
}
