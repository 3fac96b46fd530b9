package tree

import (
	"bytes"
	"image/png"
	"math"
	"reflect"
	"testing"

	"github.com/erazemk/perutnina/internal/model"
)

// family: gs -> s; s, d -> me, sib; me -> c1, c2
func family() ([]model.Fowl, []model.Parentage) {
	fowls := []model.Fowl{
		{ID: "me", Name: "Me", Gender: model.GenderFemale},
		{ID: "s", Name: "Sire", Gender: model.GenderMale},
		{ID: "d", Name: "Dam", Gender: model.GenderFemale},
		{ID: "gs", Name: "Grandsire", Gender: model.GenderMale},
		{ID: "sib", Name: "Sibling", Gender: model.GenderMale},
		{ID: "c1", Name: "Chick 1"},
		{ID: "c2", Name: "Chick 2"},
	}
	edges := []model.Parentage{
		{ParentID: "s", OffspringID: "me"},
		{ParentID: "d", OffspringID: "me"},
		{ParentID: "gs", OffspringID: "s"},
		{ParentID: "s", OffspringID: "sib"},
		{ParentID: "d", OffspringID: "sib"},
		{ParentID: "me", OffspringID: "c1"},
		{ParentID: "me", OffspringID: "c2"},
		{ParentID: "ghost", OffspringID: "me"},
	}
	return fowls, edges
}

func nodeByID(tree FamilyTree, id string) *Node {
	for i := range tree.Nodes {
		if tree.Nodes[i].ID == id {
			return &tree.Nodes[i]
		}
	}
	return nil
}

func TestBuild(t *testing.T) {
	fowls, edges := family()
	tree := Build("me", fowls, edges, 0)

	if len(tree.Nodes) != 7 {
		t.Fatalf("expected 7 nodes, got %d", len(tree.Nodes))
	}

	tests := []struct {
		id       string
		gen      int
		relation string
	}{
		{"me", 0, RelationRoot},
		{"s", 1, RelationAncestor},
		{"d", 1, RelationAncestor},
		{"c1", 1, RelationDescendant},
		{"gs", 2, RelationAncestor},
		{"sib", 2, RelationRelative},
	}
	for _, tt := range tests {
		n := nodeByID(tree, tt.id)
		if n == nil {
			t.Fatalf("missing node %s", tt.id)
		}
		if n.Generation != tt.gen || n.Relation != tt.relation {
			t.Errorf("%s: expected gen %d %s, got %d %s", tt.id, tt.gen, tt.relation, n.Generation, n.Relation)
		}
	}

	// Generation 1: ancestors first, then descendants, each by id.
	var gen1 []string
	for _, n := range tree.Nodes {
		if n.Generation == 1 {
			gen1 = append(gen1, n.ID)
			if n.SiblingCount != 4 {
				t.Errorf("%s: expected siblingCount 4, got %d", n.ID, n.SiblingCount)
			}
		}
	}
	if want := []string{"d", "s", "c1", "c2"}; !reflect.DeepEqual(gen1, want) {
		t.Errorf("expected generation 1 order %v, got %v", want, gen1)
	}
	if n := nodeByID(tree, "c2"); n.Position != 3 {
		t.Errorf("expected c2 at position 3, got %d", n.Position)
	}

	// The ghost edge is skipped, the rest give one connection each.
	if len(tree.Connections) != 7 {
		t.Fatalf("expected 7 connections, got %d: %+v", len(tree.Connections), tree.Connections)
	}
	for _, c := range tree.Connections {
		if c.From == "ghost" || c.To == "ghost" {
			t.Error("connection to missing node")
		}
		if c.From == "me" && c.To == "s" && c.Type != ConnParent {
			t.Errorf("expected me -> s to be a parent connection, got %s", c.Type)
		}
		if c.From == "me" && c.To == "c1" && c.Type != ConnOffspring {
			t.Errorf("expected me -> c1 to be an offspring connection, got %s", c.Type)
		}
	}
}

func TestBuildDepthAndOrderIndependence(t *testing.T) {
	fowls, edges := family()
	limited := Build("me", fowls, edges, 1)
	if len(limited.Nodes) != 5 {
		t.Errorf("expected 5 nodes within depth 1, got %d", len(limited.Nodes))
	}
	if nodeByID(limited, "gs") != nil {
		t.Error("did not expect grandsire within depth 1")
	}

	reversedFowls := make([]model.Fowl, len(fowls))
	for i := range fowls {
		reversedFowls[len(fowls)-1-i] = fowls[i]
	}
	reversedEdges := make([]model.Parentage, len(edges))
	for i := range edges {
		reversedEdges[len(edges)-1-i] = edges[i]
	}
	if !reflect.DeepEqual(Build("me", fowls, edges, 0), Build("me", reversedFowls, reversedEdges, 0)) {
		t.Error("expected input order not to affect the tree")
	}
}

func TestBuildMissingRoot(t *testing.T) {
	fowls, edges := family()
	tree := Build("nope", fowls, edges, 0)
	if len(tree.Nodes) != 0 || len(tree.Connections) != 0 {
		t.Errorf("expected empty tree, got %+v", tree)
	}
}

func TestLayoutStable(t *testing.T) {
	fowls, edges := family()
	tree := Build("me", fowls, edges, 0)
	vp := Viewport{Width: 800, Height: 600, Zoom: 1.5, PanX: 10, PanY: -20}

	first := Layout(tree, vp)
	second := Layout(tree, vp)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical layouts")
	}

	root := first["me"]
	if root.X != 410 || root.Y != 280 {
		t.Errorf("expected root at viewport center plus pan, got %+v", root)
	}

	// Position 0 of generation 1 sits on the positive x axis.
	d := first["d"]
	wantX := 400 + DefaultRingSpacing*1.5 + 10
	if math.Abs(d.X-wantX) > 1e-9 || math.Abs(d.Y-280) > 1e-9 {
		t.Errorf("expected d at (%v, 280), got %+v", wantX, d)
	}

	// Position 2 of 4 is half a turn away.
	c1 := first["c1"]
	wantX = 400 - DefaultRingSpacing*1.5 + 10
	if math.Abs(c1.X-wantX) > 1e-9 {
		t.Errorf("expected c1.X %v, got %v", wantX, c1.X)
	}
}

func TestRenderPNG(t *testing.T) {
	fowls, edges := family()
	tree := Build("me", fowls, edges, 0)

	var buf bytes.Buffer
	opts := Options{Viewport: Viewport{Width: 640, Height: 640}}
	if err := RenderPNG(&buf, tree, opts); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 640 {
		t.Errorf("unexpected size %v", img.Bounds())
	}

	// The root is female, so the center is pink.
	r, g, b, _ := img.At(320, 320).RGBA()
	want := GenderColor(model.GenderFemale)
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("expected root color %v at center, got %d,%d,%d", want, r>>8, g>>8, b>>8)
	}

	// Panned far away nothing is drawn, but rendering still succeeds.
	buf.Reset()
	opts.Viewport.PanX = 10000
	if err := RenderPNG(&buf, tree, opts); err != nil {
		t.Fatalf("RenderPNG off-canvas: %v", err)
	}

	if err := RenderPNG(&buf, tree, Options{Viewport: Viewport{Width: MaxCanvas + 1, Height: 10}}); err == nil {
		t.Error("expected error for oversized canvas")
	}
}

func TestRenderPDF(t *testing.T) {
	fowls, edges := family()
	tree := Build("me", fowls, edges, 0)

	var buf bytes.Buffer
	err := RenderPDF(&buf, tree, PDFOptions{Title: "Družinsko drevo: Me", Photo: []byte("not a jpeg")})
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("expected PDF header")
	}
}
