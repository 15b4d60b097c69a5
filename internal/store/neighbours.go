package store

import "fmt"

// Traversal directions for GetNeighbours.
const (
	DirOutgoing = "outgoing"
	DirIncoming = "incoming"
	DirBoth     = "both"
)

// GraphRef identifies a node in the repo graph.
type GraphRef struct {
	Type string
	ID   int64
}

// Neighbourhood is the result of a bounded traversal: nodes are unique and
// insertion-ordered starting with the seed; edges are deduplicated by id.
type Neighbourhood struct {
	Nodes []GraphRef
	Edges []EdgeRecord
}

// GetNeighbours runs a breadth-first traversal from the seed, bounded by
// depth hops. At each pop it fetches edges by direction, records each new
// edge, and enqueues the endpoint not equal to the current node if unseen.
func (s *Store) GetNeighbours(repoID int64, startType string, startID int64, depth int, direction string) (Neighbourhood, error) {
	switch direction {
	case DirOutgoing, DirIncoming, DirBoth:
	default:
		return Neighbourhood{}, fmt.Errorf("unknown direction %q", direction)
	}

	seed := GraphRef{Type: startType, ID: startID}
	result := Neighbourhood{Nodes: []GraphRef{seed}}

	seenNodes := map[GraphRef]bool{seed: true}
	seenEdges := map[int64]bool{}

	type queued struct {
		ref   GraphRef
		depth int
	}
	queue := []queued{{ref: seed, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= depth {
			continue
		}

		var edges []EdgeRecord
		if direction == DirOutgoing || direction == DirBoth {
			out, err := s.FindEdgesBySrc(repoID, cur.ref.Type, cur.ref.ID)
			if err != nil {
				return Neighbourhood{}, err
			}
			edges = append(edges, out...)
		}
		if direction == DirIncoming || direction == DirBoth {
			in, err := s.FindEdgesByDst(repoID, cur.ref.Type, cur.ref.ID)
			if err != nil {
				return Neighbourhood{}, err
			}
			edges = append(edges, in...)
		}

		for _, e := range edges {
			if !seenEdges[e.ID] {
				seenEdges[e.ID] = true
				result.Edges = append(result.Edges, e)
			}
			other := GraphRef{Type: e.DstType, ID: e.DstID}
			if other == cur.ref {
				other = GraphRef{Type: e.SrcType, ID: e.SrcID}
			}
			if !seenNodes[other] {
				seenNodes[other] = true
				result.Nodes = append(result.Nodes, other)
				queue = append(queue, queued{ref: other, depth: cur.depth + 1})
			}
		}
	}

	if result.Edges == nil {
		result.Edges = []EdgeRecord{}
	}
	return result, nil
}
