package cfg

// UCE removes every block that cannot be reached from the entry.
type UCE struct{}

// Name returns the pass name.
func (UCE) Name() string { return "uce" }

// Run deletes the unreachable blocks and reports whether any were found.
func (UCE) Run(g *Graph) bool {
	seen := make([]bool, len(g.blocks))
	queue := []BlockID{g.Entry().ID}
	seen[g.Entry().ID] = true

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, s := range g.blocks[id].Succs {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}

	changed := false
	for _, b := range g.Blocks() {
		if !seen[b.ID] {
			Trace("Removed unreachable block", "proc", g.Proc, "block", b.Label)
			g.remove(b)
			changed = true
		}
	}

	if changed {
		g.relink()
	}
	return changed
}
