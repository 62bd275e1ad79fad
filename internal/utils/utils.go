package utils

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRoomCode returns an n-character code without look-alike characters
// (no I, O, 0, 1), suitable for reading aloud.
func GenerateRoomCode(n int) string {
	const max = byte(255 - (256 % len(roomCodeAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, roomCodeAlphabet[int(b)%len(roomCodeAlphabet)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// NormalizeRoomCode trims whitespace and upper-cases a user-typed code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func GenerateID() string {
	return uuid.NewString()
}

// RandSource is the default internal.Source backed by math/rand/v2, which is
// safe for concurrent use.
type RandSource struct{}

func (RandSource) Intn(n int) int {
	return mrand.IntN(n)
}

// OriginAllowed reports whether origin matches the allow list. "*" matches
// everything and an empty origin (same-origin or non-browser client) is
// always allowed.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	return false
}
