package headertree

// AncestorAt returns node's ancestor at the given height, or node itself if
// that's its height. Returns nil if height is above node.
func (ht *HeaderTree) AncestorAt(node *ChainedHeader, height uint64) *ChainedHeader {
	if height > node.Height {
		return nil
	}
	for node.Height > height {
		node = ht.parent(node)
	}
	return node
}

// FindFork returns the deepest node that is an ancestor of, or equal to,
// both a and b.
func (ht *HeaderTree) FindFork(a, b *ChainedHeader) *ChainedHeader {
	if a.Height > b.Height {
		a = ht.AncestorAt(a, b.Height)
	} else {
		b = ht.AncestorAt(b, a.Height)
	}
	for a != b {
		a = ht.parent(a)
		b = ht.parent(b)
	}
	return a
}

// IsAncestorOrSelf returns whether ancestor is on the chain ending at node.
func (ht *HeaderTree) IsAncestorOrSelf(ancestor, node *ChainedHeader) bool {
	return ht.AncestorAt(node, ancestor.Height) == ancestor
}

// ChainBetween returns the nodes after fork up to and including tip,
// ordered by height. fork must be an ancestor of tip.
func (ht *HeaderTree) ChainBetween(fork, tip *ChainedHeader) []*ChainedHeader {
	chain := make([]*ChainedHeader, tip.Height-fork.Height)
	for node := tip; node != fork; node = ht.parent(node) {
		chain[node.Height-fork.Height-1] = node
	}
	return chain
}
