// Package tree builds and draws radial family trees of fowls.
package tree

import (
	"math"
	"sort"

	"github.com/erazemk/perutnina/internal/model"
)

// Connection types.
const (
	ConnParent    = "parent"
	ConnOffspring = "offspring"
)

// Node relations to the root.
const (
	RelationRoot       = "root"
	RelationAncestor   = "ancestor"
	RelationDescendant = "descendant"
	RelationRelative   = "relative"
)

// Node is one fowl placed in the tree.
type Node struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	Relation     string `json:"relation"`
	Generation   int    `json:"generation"`
	Position     int    `json:"position"`
	SiblingCount int    `json:"siblingCount"`
}

// Connection links two nodes. Type is relative to From: a "parent"
// connection points from a fowl to its parent.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// FamilyTree is the laid-out family graph around one fowl.
type FamilyTree struct {
	RootID      string       `json:"rootId"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Build walks the parent/offspring graph breadth-first from rootID, up to
// maxDepth generations away (no limit when maxDepth <= 0). Edges whose
// endpoints are not in fowls are skipped. The result depends only on the
// input, never on its order.
func Build(rootID string, fowls []model.Fowl, edges []model.Parentage, maxDepth int) FamilyTree {
	tree := FamilyTree{RootID: rootID, Nodes: []Node{}, Connections: []Connection{}}

	byID := make(map[string]model.Fowl, len(fowls))
	for _, f := range fowls {
		byID[f.ID] = f
	}
	if _, ok := byID[rootID]; !ok {
		return tree
	}

	parents := map[string][]string{}
	children := map[string][]string{}
	seenEdge := map[model.Parentage]bool{}
	var valid []model.Parentage
	for _, e := range edges {
		_, okP := byID[e.ParentID]
		_, okO := byID[e.OffspringID]
		if !okP || !okO || e.ParentID == e.OffspringID || seenEdge[e] {
			continue
		}
		seenEdge[e] = true
		valid = append(valid, e)
		parents[e.OffspringID] = append(parents[e.OffspringID], e.ParentID)
		children[e.ParentID] = append(children[e.ParentID], e.OffspringID)
	}
	for _, ids := range parents {
		sort.Strings(ids)
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	generation := map[string]int{rootID: 0}
	relation := map[string]string{rootID: RelationRoot}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		gen := generation[id]
		if maxDepth > 0 && gen >= maxDepth {
			continue
		}

		visit := func(next, rel string) {
			if _, ok := generation[next]; ok {
				return
			}
			generation[next] = gen + 1
			relation[next] = rel
			queue = append(queue, next)
		}
		for _, p := range parents[id] {
			visit(p, parentRelation(relation[id]))
		}
		for _, c := range children[id] {
			visit(c, childRelation(relation[id]))
		}
	}

	for id, gen := range generation {
		f := byID[id]
		tree.Nodes = append(tree.Nodes, Node{
			ID:         id,
			Name:       f.Name,
			Gender:     f.Gender,
			Relation:   relation[id],
			Generation: gen,
		})
	}
	sort.Slice(tree.Nodes, func(i, j int) bool {
		a, b := tree.Nodes[i], tree.Nodes[j]
		if a.Generation != b.Generation {
			return a.Generation < b.Generation
		}
		if ra, rb := relationRank(a.Relation), relationRank(b.Relation); ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})

	for start := 0; start < len(tree.Nodes); {
		end := start
		for end < len(tree.Nodes) && tree.Nodes[end].Generation == tree.Nodes[start].Generation {
			end++
		}
		for i := start; i < end; i++ {
			tree.Nodes[i].Position = i - start
			tree.Nodes[i].SiblingCount = end - start
		}
		start = end
	}

	for _, e := range valid {
		genParent, okP := generation[e.ParentID]
		genOffspring, okO := generation[e.OffspringID]
		if !okP || !okO {
			continue
		}
		if genOffspring < genParent {
			tree.Connections = append(tree.Connections, Connection{From: e.OffspringID, To: e.ParentID, Type: ConnParent})
		} else {
			tree.Connections = append(tree.Connections, Connection{From: e.ParentID, To: e.OffspringID, Type: ConnOffspring})
		}
	}
	sort.Slice(tree.Connections, func(i, j int) bool {
		a, b := tree.Connections[i], tree.Connections[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	return tree
}

func parentRelation(from string) string {
	switch from {
	case RelationRoot, RelationAncestor:
		return RelationAncestor
	}
	return RelationRelative
}

func childRelation(from string) string {
	switch from {
	case RelationRoot, RelationDescendant:
		return RelationDescendant
	}
	return RelationRelative
}

func relationRank(rel string) int {
	switch rel {
	case RelationRoot, RelationAncestor:
		return 0
	case RelationDescendant:
		return 1
	}
	return 2
}

// DefaultRingSpacing is the distance between generations in pixels.
const DefaultRingSpacing = 120

// Viewport describes the drawing surface and the user's zoom and pan.
type Viewport struct {
	Width       float64
	Height      float64
	Zoom        float64
	PanX        float64
	PanY        float64
	RingSpacing float64
}

func (v Viewport) withDefaults() Viewport {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	if v.RingSpacing <= 0 {
		v.RingSpacing = DefaultRingSpacing
	}
	return v
}

// Point is a position on the drawing surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout places every node on a ring around the center of the viewport.
// A node's ring is its generation and its angle is position/siblingCount of
// a full turn. Layout is a pure function of the tree and the viewport.
func Layout(tree FamilyTree, vp Viewport) map[string]Point {
	vp = vp.withDefaults()
	cx, cy := vp.Width/2, vp.Height/2

	points := make(map[string]Point, len(tree.Nodes))
	for _, n := range tree.Nodes {
		radius := float64(n.Generation) * vp.RingSpacing
		var angle float64
		if n.SiblingCount > 0 {
			angle = float64(n.Position) / float64(n.SiblingCount) * 2 * math.Pi
		}
		points[n.ID] = Point{
			X: cx + radius*math.Cos(angle)*vp.Zoom + vp.PanX,
			Y: cy + radius*math.Sin(angle)*vp.Zoom + vp.PanY,
		}
	}
	return points
}
