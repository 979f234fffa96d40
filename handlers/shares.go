package handlers

import (
	"strconv"
	"strings"
)

// ParseShares reads a share count from a form value. Only whole numbers
// greater than zero are accepted.
func ParseShares(raw string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
