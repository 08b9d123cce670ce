package chain

import (
	"strconv"
	"strings"
)

// Default mining parameters. Difficulty counts leading hex zeros of the
// block digest; four zeros keeps an append in the tens of milliseconds on
// commodity hardware.
const (
	DefaultDifficulty  = 4
	DefaultMaxAttempts = 1_000_000
)

// Solve searches for a nonce such that SumHex(input ‖ decimal nonce) starts
// with difficulty hex zeros. Nonces are tried in order from zero.
//
// The search is bounded: after maxAttempts the last attempted nonce is
// returned with found=false. The caller decides whether that is acceptable —
// the ledger engine stores such blocks anyway so that appends complete in
// bounded time, at the cost of an under-mined seal. Exhaustion is never an
// error.
func Solve(input []byte, difficulty, maxAttempts int) (nonce uint64, found bool) {
	if difficulty < 0 {
		difficulty = 0
	}
	target := strings.Repeat("0", difficulty)

	buf := make([]byte, len(input), len(input)+20)
	copy(buf, input)

	for n := uint64(0); n <= uint64(maxAttempts); n++ {
		attempt := SumHex(strconv.AppendUint(buf[:len(input)], n, 10))
		if strings.HasPrefix(attempt, target) {
			return n, true
		}
	}
	return uint64(maxAttempts), false
}

// Sealed reports whether the digest of input ‖ decimal nonce meets the
// difficulty target. Callers that require strict mining use this to re-check
// a nonce returned by an exhausted Solve.
func Sealed(input []byte, nonce uint64, difficulty int) bool {
	attempt := SumHex([]byte(string(input) + strconv.FormatUint(nonce, 10)))
	return strings.HasPrefix(attempt, strings.Repeat("0", difficulty))
}
