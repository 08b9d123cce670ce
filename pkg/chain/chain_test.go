package chain_test

import (
	"testing"

	"github.com/jmerrifield20/CreditChain/pkg/chain"
)

func TestGenesisHash_width(t *testing.T) {
	if len(chain.GenesisHash) != 64 {
		t.Errorf("GenesisHash is %d chars, want 64", len(chain.GenesisHash))
	}
	for _, c := range chain.GenesisHash {
		if c != '0' {
			t.Fatalf("GenesisHash contains non-zero character %q", c)
		}
	}
}

func TestSumHex_knownVector(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := chain.SumHex([]byte("abc")); got != want {
		t.Errorf("SumHex(abc) = %q, want %q", got, want)
	}
}

func TestCanonical_sortsKeys(t *testing.T) {
	b, err := chain.Canonical(map[string]any{
		"zebra":    1,
		"apple":    "x",
		"midpoint": 2.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"apple":"x","midpoint":2.5,"zebra":1}`
	if string(b) != want {
		t.Errorf("Canonical = %s, want %s", b, want)
	}
}

func TestCanonical_byteIdenticalForEqualPayloads(t *testing.T) {
	fields := func() map[string]any {
		return map[string]any{
			"user_id":      int64(1),
			"credit_score": 720,
			"confidence":   0.91,
			"risk_factors": []string{"high_debt_ratio"},
		}
	}
	a, err := chain.Canonical(fields())
	if err != nil {
		t.Fatal(err)
	}
	b, err := chain.Canonical(fields())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("equal payloads canonicalized differently:\n%s\n%s", a, b)
	}
}
