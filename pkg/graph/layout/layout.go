// Package layout computes deterministic 2-D positions for a Domain Graph.
//
// The algorithm is a rank-based heuristic tuned for shallow dependency graphs
// of tens of nodes: modules are bucketed into architecture tiers, ordered
// within a tier by how heavily they are depended upon (most-important-in-the-
// middle), and stacked vertically tier by tier. Expanded modules reserve
// space below their tier for a fixed 3-column grid of child files.
//
// Compute is a pure function: identical inputs produce bit-identical output.
// There is no randomness and no hidden state; callers re-invoke it whenever
// the node set, relationship set, or expansion set changes.
package layout

import (
	"sort"

	"onionscope/pkg/graph"
)

// Geometry constants, in user units (pixels in the web shell, scaled cells
// in the TUI).
const (
	// NodeWidth and NodeHeight are the dimensions of a module node box.
	NodeWidth  = 180.0
	NodeHeight = 90.0

	// GapX is the horizontal gap between adjacent nodes in a tier.
	GapX = 40.0

	// TierPadding is the vertical gap between consecutive tiers.
	TierPadding = 70.0

	// MarginX and MarginY inset the whole arrangement from the origin.
	MarginX = 40.0
	MarginY = 40.0

	// Child grid geometry for expanded modules.
	ChildWidth     = 150.0
	ChildHeight    = 40.0
	ChildGapX      = 12.0
	ChildGapY      = 10.0
	ChildColumns   = 3
	ChildTopMargin = 16.0
)

// Position is the computed placement of one node (module or child file).
// It is a pure geometric projection; user drag offsets are stored separately
// by the interaction controller and composed at render time.
type Position struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterX returns the horizontal center of the position box.
func (p Position) CenterX() float64 { return p.X + p.Width/2 }

// CenterY returns the vertical center of the position box.
func (p Position) CenterY() float64 { return p.Y + p.Height/2 }

// Expansion is the lifecycle state of one expanded module node.
// Absence of an entry means the module is collapsed.
type Expansion struct {
	ModuleID string             `json:"module_id"`
	Files    []graph.ModuleFile `json:"files,omitempty"`
	Loading  bool               `json:"loading,omitempty"`
	Err      string             `json:"error,omitempty"`
}

// Resolved reports whether the expansion has completed successfully and its
// child grid should occupy space in the layout.
func (e Expansion) Resolved() bool {
	return !e.Loading && e.Err == ""
}

// Compute maps domain nodes and relationships to positions.
//
// Steps:
//  1. Bucket nodes into architecture tiers in fixed order; unrecognized
//     tiers fall into business.
//  2. Within a tier, order by incoming-edge weight descending (stable:
//     equal weights keep input order).
//  3. Re-interleave so the heaviest node sits at the tier's midpoint and
//     the rest alternate left/right of it.
//  4. Assign x within the tier, centering the tier block against the
//     widest tier.
//  5. Stack tiers vertically; a tier containing resolved expansions
//     reserves the child grid height below it before the next tier starts.
//  6. Lay out each resolved expansion's files as a 3-column row-major grid
//     centered under the parent. Child positions are keyed by file ID.
func Compute(nodes []graph.DomainNode, rels []graph.DomainRelationship, expansions map[string]Expansion) map[string]Position {
	positions := make(map[string]Position, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	buckets := bucketByTier(nodes)
	weights := incomingWeights(rels)

	maxCount := 0
	for _, tier := range graph.TierOrder {
		if n := len(buckets[tier]); n > maxCount {
			maxCount = n
		}
	}
	frameWidth := tierWidth(maxCount)

	y := MarginY
	for _, tier := range graph.TierOrder {
		members := buckets[tier]
		if len(members) == 0 {
			continue
		}

		ordered := interleave(sortByWeight(members, weights))
		offset := MarginX + (frameWidth-tierWidth(len(ordered)))/2

		expansionHeight := 0.0
		for i, node := range ordered {
			pos := Position{
				ID:     node.ID,
				X:      offset + float64(i)*(NodeWidth+GapX),
				Y:      y,
				Width:  NodeWidth,
				Height: NodeHeight,
			}
			positions[node.ID] = pos

			exp, ok := expansions[node.ID]
			if !ok || !exp.Resolved() || len(exp.Files) == 0 {
				continue
			}
			placeChildren(positions, pos, exp.Files)
			if h := gridHeight(len(exp.Files)); h > expansionHeight {
				expansionHeight = h
			}
		}

		y += NodeHeight + expansionHeight + TierPadding
	}

	return positions
}

// bucketByTier groups nodes by architecture tier, preserving input order.
func bucketByTier(nodes []graph.DomainNode) map[graph.Tier][]graph.DomainNode {
	buckets := make(map[graph.Tier][]graph.DomainNode, len(graph.TierOrder))
	for _, n := range nodes {
		tier := graph.ParseTier(string(n.ArchitectureLayer))
		buckets[tier] = append(buckets[tier], n)
	}
	return buckets
}

// incomingWeights counts relationships targeting each node.
func incomingWeights(rels []graph.DomainRelationship) map[string]int {
	weights := make(map[string]int, len(rels))
	for _, r := range rels {
		weights[r.Target]++
	}
	return weights
}

// sortByWeight orders nodes by incoming weight descending. The sort is
// stable so equal weights retain input order.
func sortByWeight(nodes []graph.DomainNode, weights map[string]int) []graph.DomainNode {
	sorted := make([]graph.DomainNode, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return weights[sorted[i].ID] > weights[sorted[j].ID]
	})
	return sorted
}

// interleave rearranges a weight-descending list into a most-important-in-
// the-middle arrangement: the heaviest node lands at the midpoint index and
// the rest alternate left, right, left, ... around it. When one side fills
// up the remainder spills to the other, so any tier size is safe.
func interleave(sorted []graph.DomainNode) []graph.DomainNode {
	k := len(sorted)
	if k <= 1 {
		return sorted
	}

	out := make([]graph.DomainNode, k)
	mid := k / 2
	out[mid] = sorted[0]
	left, right := mid-1, mid+1

	for i := 1; i < k; i++ {
		takeLeft := i%2 == 1
		switch {
		case takeLeft && left >= 0:
			out[left] = sorted[i]
			left--
		case right < k:
			out[right] = sorted[i]
			right++
		default:
			out[left] = sorted[i]
			left--
		}
	}
	return out
}

// tierWidth returns the horizontal span of a tier with k nodes.
func tierWidth(k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(k)*NodeWidth + float64(k-1)*GapX
}

// gridHeight returns the vertical space a child grid with n files occupies
// below its parent, including the top margin.
func gridHeight(n int) float64 {
	if n <= 0 {
		return 0
	}
	rows := (n + ChildColumns - 1) / ChildColumns
	return ChildTopMargin + float64(rows)*(ChildHeight+ChildGapY)
}

// placeChildren lays out an expansion's files as a row-major grid centered
// under the parent node.
func placeChildren(positions map[string]Position, parent Position, files []graph.ModuleFile) {
	cols := ChildColumns
	if len(files) < cols {
		cols = len(files)
	}
	gridWidth := float64(cols)*ChildWidth + float64(cols-1)*ChildGapX
	startX := parent.CenterX() - gridWidth/2
	startY := parent.Y + parent.Height + ChildTopMargin

	for i, f := range files {
		row := i / ChildColumns
		col := i % ChildColumns
		positions[f.ID] = Position{
			ID:     f.ID,
			X:      startX + float64(col)*(ChildWidth+ChildGapX),
			Y:      startY + float64(row)*(ChildHeight+ChildGapY),
			Width:  ChildWidth,
			Height: ChildHeight,
		}
	}
}
