package session

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrBadAmount means the text is not a usable positive number. The caller
// keeps the conversation state so the user may retry.
var ErrBadAmount = errors.New("session: amount is not a positive number")

// ParseAmount accepts "12.5" and "12,5" (decimal comma is common for local
// users), rejects non-finite and non-positive values.
func ParseAmount(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrBadAmount
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrBadAmount
	}
	return v, nil
}
