package tree

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	pageMargin   = 10.0
	rowHeight    = 7.0
	rowsPerPage  = 34
	pdfPxPerMM   = 4.0
	pdfNodeScale = 0.25
)

// PDFOptions control PDF export.
type PDFOptions struct {
	Options
	Title string
	// Photo is an optional JPEG of the root fowl shown on the first page.
	Photo []byte
}

// RenderPDF writes the tree diagram on the first page followed by a
// paginated table of all nodes.
func RenderPDF(w io.Writer, tree FamilyTree, opts PDFOptions) error {
	opts.Options = opts.Options.withDefaults()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetAutoPageBreak(false, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pageMargin, pageMargin+6, tr(opts.Title))

	if len(opts.Photo) > 0 {
		imgOpts := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader("root", imgOpts, bytes.NewReader(opts.Photo))
		if pdf.Ok() {
			pdf.ImageOptions("root", pageWidth-pageMargin-40, pageMargin, 40, 0, false, imgOpts, 0, "")
		} else {
			// An unreadable photo should not fail the export.
			pdf.ClearError()
		}
	}

	drawDiagram(pdf, tree, opts.Options, tr)
	drawTable(pdf, tree, tr)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("building PDF: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// drawDiagram maps the pixel layout onto the area below the title. Zoom
// and pan from the viewport are kept, so the PDF matches what was on screen.
func drawDiagram(pdf *gofpdf.Fpdf, tree FamilyTree, opts Options, tr func(string) string) {
	top := pageMargin + 55.0
	areaW := pageWidth - 2*pageMargin
	areaH := pageHeight - top - pageMargin

	vp := opts.Viewport
	vp.Width = areaW * pdfPxPerMM
	vp.Height = areaH * pdfPxPerMM
	points := Layout(tree, vp)

	toPage := func(p Point) (float64, float64, bool) {
		x := pageMargin + p.X/pdfPxPerMM
		y := top + p.Y/pdfPxPerMM
		ok := x >= pageMargin && x <= pageWidth-pageMargin && y >= top && y <= pageHeight-pageMargin
		return x, y, ok
	}

	pdf.SetDrawColor(int(lineColor.R), int(lineColor.G), int(lineColor.B))
	pdf.SetLineWidth(0.3)
	for _, c := range tree.Connections {
		a, okA := points[c.From]
		b, okB := points[c.To]
		if !okA || !okB {
			continue
		}
		x1, y1, in1 := toPage(a)
		x2, y2, in2 := toPage(b)
		if in1 && in2 {
			pdf.Line(x1, y1, x2, y2)
		}
	}

	r := opts.NodeRadius * pdfNodeScale
	pdf.SetFont("Helvetica", "", 7)
	for _, n := range tree.Nodes {
		x, y, ok := toPage(points[n.ID])
		if !ok {
			continue
		}
		c := GenderColor(n.Gender)
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		pdf.Circle(x, y, r, "F")

		label := tr(n.Name)
		pdf.Text(x-pdf.GetStringWidth(label)/2, y+r+3, label)
	}
}

func drawTable(pdf *gofpdf.Fpdf, tree FamilyTree, tr func(string) string) {
	cols := []struct {
		title string
		width float64
	}{
		{"Name", 60},
		{"ID", 50},
		{"Gender", 25},
		{"Relation", 30},
		{"Generation", 25},
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(0xee, 0xee, 0xee)
		for _, c := range cols {
			pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	for i, n := range tree.Nodes {
		if i%rowsPerPage == 0 {
			pdf.AddPage()
			pdf.SetXY(pageMargin, pageMargin)
			header()
		}
		values := []string{tr(n.Name), n.ID, n.Gender, n.Relation, strconv.Itoa(n.Generation)}
		for j, c := range cols {
			pdf.CellFormat(c.width, rowHeight, values[j], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
