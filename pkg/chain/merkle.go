package chain

// MerkleRoot reduces an ordered sequence of leaves to a single root digest.
//
// Leaf order is semantic and never sorted. The reduction pairs adjacent
// leaves left-to-right, hashing the concatenation of each pair; an odd leaf
// at the end of a level is paired with itself. The loop is iterative, so
// depth is logarithmic in the leaf count regardless of input size.
//
// Edge cases: an empty sequence yields the digest of the empty string, and a
// single leaf yields the digest of that leaf alone.
func MerkleRoot(leaves []string) string {
	if len(leaves) == 0 {
		return SumHex(nil)
	}
	if len(leaves) == 1 {
		return SumHex([]byte(leaves[0]))
	}

	level := make([]string, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left // duplicate the odd leaf
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, SumHex([]byte(left+right)))
		}
		level = next
	}
	return level[0]
}
