package chain_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

func TestSolve_findsQualifyingNonce(t *testing.T) {
	input := []byte("block sealing input")
	nonce, found := chain.Solve(input, 2, chain.DefaultMaxAttempts)
	if !found {
		t.Fatal("Solve did not find a nonce at difficulty 2")
	}

	digest := chain.SumHex([]byte("block sealing input" + strconv.FormatUint(nonce, 10)))
	if !strings.HasPrefix(digest, "00") {
		t.Errorf("digest %q does not start with 2 hex zeros", digest)
	}
	if !chain.Sealed(input, nonce, 2) {
		t.Error("Sealed() disagrees with Solve()")
	}
}

func TestSolve_returnsFirstNonce(t *testing.T) {
	// Difficulty 0 is satisfied by every digest, so the first attempt wins.
	nonce, found := chain.Solve([]byte("anything"), 0, 100)
	if !found || nonce != 0 {
		t.Errorf("Solve(difficulty=0) = (%d, %v), want (0, true)", nonce, found)
	}
}

func TestSolve_exhaustionReturnsLastNonce(t *testing.T) {
	// 64 leading zeros is unreachable; a tiny cap forces exhaustion.
	const maxAttempts = 50
	nonce, found := chain.Solve([]byte("unminable"), 64, maxAttempts)
	if found {
		t.Fatal("Solve claimed success at an unreachable difficulty")
	}
	if nonce != maxAttempts {
		t.Errorf("exhausted Solve returned nonce %d, want last attempted %d", nonce, maxAttempts)
	}
	if chain.Sealed([]byte("unminable"), nonce, 64) {
		t.Error("exhausted nonce must not satisfy the difficulty predicate")
	}
}

func TestSolve_doesNotMutateInput(t *testing.T) {
	input := []byte("immutable input")
	want := string(input)
	chain.Solve(input, 1, chain.DefaultMaxAttempts)
	if string(input) != want {
		t.Errorf("Solve mutated its input: %q", input)
	}
}

func TestSolve_deterministic(t *testing.T) {
	a, _ := chain.Solve([]byte("same input"), 2, chain.DefaultMaxAttempts)
	b, _ := chain.Solve([]byte("same input"), 2, chain.DefaultMaxAttempts)
	if a != b {
		t.Errorf("Solve not deterministic: %d vs %d", a, b)
	}
}
