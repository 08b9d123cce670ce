package chain_test

import (
	"testing"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

// emptyRoot is the SHA-256 digest of the empty string.
const emptyRoot = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestMerkleRoot_empty(t *testing.T) {
	if got := chain.MerkleRoot(nil); got != emptyRoot {
		t.Errorf("MerkleRoot(nil) = %q, want digest of empty string", got)
	}
	if got := chain.MerkleRoot([]string{}); got != emptyRoot {
		t.Errorf("MerkleRoot([]) = %q, want digest of empty string", got)
	}
}

func TestMerkleRoot_singleLeaf(t *testing.T) {
	got := chain.MerkleRoot([]string{"leaf"})
	want := chain.SumHex([]byte("leaf"))
	if got != want {
		t.Errorf("MerkleRoot([leaf]) = %q, want %q", got, want)
	}
}

func TestMerkleRoot_pair(t *testing.T) {
	got := chain.MerkleRoot([]string{"a", "b"})
	want := chain.SumHex([]byte("ab"))
	if got != want {
		t.Errorf("MerkleRoot([a b]) = %q, want digest of %q", got, "ab")
	}
}

func TestMerkleRoot_oddLeafDuplicated(t *testing.T) {
	// With three leaves the last one pairs with itself:
	// root = H(H(a‖b) ‖ H(c‖c))
	ab := chain.SumHex([]byte("ab"))
	cc := chain.SumHex([]byte("cc"))
	want := chain.SumHex([]byte(ab + cc))

	if got := chain.MerkleRoot([]string{"a", "b", "c"}); got != want {
		t.Errorf("MerkleRoot([a b c]) = %q, want %q", got, want)
	}
}

func TestMerkleRoot_orderIsSemantic(t *testing.T) {
	if chain.MerkleRoot([]string{"a", "b"}) == chain.MerkleRoot([]string{"b", "a"}) {
		t.Error("MerkleRoot must depend on leaf order")
	}
}

func TestMerkleRoot_deterministic(t *testing.T) {
	leaves := []string{"w", "x", "y", "z", "q"}
	first := chain.MerkleRoot(leaves)
	for i := 0; i < 10; i++ {
		if got := chain.MerkleRoot(leaves); got != first {
			t.Fatalf("MerkleRoot not deterministic: %q vs %q", got, first)
		}
	}
}

func TestMerkleRoot_doesNotMutateInput(t *testing.T) {
	leaves := []string{"a", "b", "c"}
	chain.MerkleRoot(leaves)
	if leaves[0] != "a" || leaves[1] != "b" || leaves[2] != "c" {
		t.Errorf("input slice mutated: %v", leaves)
	}
}
