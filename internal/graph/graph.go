// Package graph builds agent network snapshots for the visualization
// layer. Nodes carry display styling derived from reputation; edges
// link agents of similar standing. The package only ever reads state
// snapshots, never live engine state.
package graph

import "sort"

// Node is one agent in the network view.
type Node struct {
	ID         string  `json:"id"`
	Reputation float64 `json:"reputation"`
	Size       float64 `json:"size"`  // 10–50, proportional to reputation
	Color      string  `json:"color"` // reputation band color
}

// Edge links two agents with similar reputations.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"` // combined reputation, normalized
}

// Graph is a styled snapshot of the agent network.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// neighborsPerNode caps how many similar agents each node links to.
const neighborsPerNode = 3

// Build constructs the network from an agent state snapshot. Names fix
// the node order (pass them in creation order); highly reputed agents
// end up more central because similar-reputation agents cluster.
func Build(names []string, states map[string]float64) *Graph {
	g := &Graph{}
	seen := make(map[[2]string]bool)

	for _, name := range names {
		rep := states[name]
		g.Nodes = append(g.Nodes, Node{
			ID:         name,
			Reputation: rep,
			Size:       10 + (rep/200)*40,
			Color:      ReputationColor(rep),
		})
	}

	// Connect each agent to its closest reputation neighbours.
	for _, name := range names {
		rep := states[name]

		type candidate struct {
			name string
			diff float64
		}
		var cands []candidate
		for _, other := range names {
			if other == name {
				continue
			}
			diff := rep - states[other]
			if diff < 0 {
				diff = -diff
			}
			cands = append(cands, candidate{other, diff})
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].diff < cands[j].diff })

		limit := neighborsPerNode
		if len(cands) < limit {
			limit = len(cands)
		}
		for _, c := range cands[:limit] {
			g.addEdge(seen, name, c.name, (rep+states[c.name])/200)
		}
	}

	// Join any remaining components so the layout renders as one network.
	comps := g.components()
	for i := 0; i+1 < len(comps); i++ {
		a, b := comps[i][0], comps[i+1][0]
		g.addEdge(seen, a, b, (states[a]+states[b])/200)
	}

	return g
}

func (g *Graph) addEdge(seen map[[2]string]bool, a, b string, weight float64) {
	key := [2]string{a, b}
	if a > b {
		key = [2]string{b, a}
	}
	if seen[key] {
		return
	}
	seen[key] = true
	g.Edges = append(g.Edges, Edge{From: a, To: b, Weight: weight})
}

// ReputationColor maps a reputation to its display band: red below 50,
// orange to 100, yellow to 150, green above.
func ReputationColor(rep float64) string {
	normalized := rep / 200
	switch {
	case normalized < 0.25:
		return "#E74C3C"
	case normalized < 0.5:
		return "#E67E22"
	case normalized < 0.75:
		return "#F39C12"
	default:
		return "#27AE60"
	}
}

// adjacency returns the undirected neighbour lists.
func (g *Graph) adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		adj[n.ID] = nil
	}
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}
	return adj
}

// components returns connected components in node order.
func (g *Graph) components() [][]string {
	adj := g.adjacency()
	visited := make(map[string]bool, len(g.Nodes))
	var comps [][]string

	for _, n := range g.Nodes {
		if visited[n.ID] {
			continue
		}
		var comp []string
		queue := []string{n.ID}
		visited[n.ID] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}
