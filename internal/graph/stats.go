package graph

// Stats describes the network topology.
type Stats struct {
	Nodes     int     `json:"num_nodes"`
	Edges     int     `json:"num_edges"`
	AvgDegree float64 `json:"avg_degree"`
	Density   float64 `json:"density"`
	Connected bool    `json:"connected"`

	// Path metrics are only defined for a connected graph.
	AvgPathLength float64 `json:"avg_path_length,omitempty"`
	Diameter      int     `json:"diameter,omitempty"`
}

// Stats computes topology statistics for the graph. Path metrics are
// left zero when the graph is empty or disconnected.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Edges: len(g.Edges)}
	if s.Nodes == 0 {
		return s
	}

	s.AvgDegree = 2 * float64(s.Edges) / float64(s.Nodes)
	if s.Nodes > 1 {
		s.Density = 2 * float64(s.Edges) / float64(s.Nodes*(s.Nodes-1))
	}
	s.Connected = len(g.components()) == 1

	if s.Connected && s.Nodes > 1 {
		adj := g.adjacency()
		totalDist := 0
		pairs := 0
		for _, n := range g.Nodes {
			for _, dist := range bfsDistances(adj, n.ID) {
				if dist > 0 {
					totalDist += dist
					pairs++
					if dist > s.Diameter {
						s.Diameter = dist
					}
				}
			}
		}
		if pairs > 0 {
			s.AvgPathLength = float64(totalDist) / float64(pairs)
		}
	}

	return s
}

// bfsDistances returns hop counts from start to every reachable node.
func bfsDistances(adj map[string][]string, start string) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, ok := dist[next]; !ok {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return dist
}
