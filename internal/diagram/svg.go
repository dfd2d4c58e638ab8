package diagram

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/rendis/wfgraph/internal/graph"
)

const (
	svgMargin      = 40.0
	svgArrowLength = 10.0
)

// svgFill maps a status onto a node fill color. Matches the Mermaid and
// graphviz palettes.
func svgFill(node *Node) (fill, text string) {
	if node.Status == nil {
		return "#ffffff", "#222222"
	}
	switch node.Status.Status {
	case "completed":
		return "#2d6a2d", "#ffffff"
	case "in_progress":
		return "#1a5276", "#ffffff"
	case "pending":
		return "#d3d3d3", "#222222"
	case "rejected":
		return "#8b1a1a", "#ffffff"
	default:
		return "#ffffff", "#222222"
	}
}

// RenderSVG draws the model at its computed coordinates: node shapes on
// their centers and each connection as the router's Bézier curve with an
// arrowhead and label.
func RenderSVG(model *DiagramModel) string {
	var b strings.Builder

	minX, minY := model.Bounds.Min.X-svgMargin, model.Bounds.Min.Y-svgMargin
	w := model.Bounds.Width() + 2*svgMargin
	h := model.Bounds.Height() + 2*svgMargin

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(minX), num(minY), num(w), num(h), num(w), num(h))
	if model.Title != "" {
		fmt.Fprintf(&b, "  <title>%s</title>\n", html.EscapeString(model.Title))
	}

	b.WriteString(`  <g class="connections" fill="none" stroke="#555555" stroke-width="1.5">` + "\n")
	for _, e := range model.Edges {
		dash := ""
		if e.Back(model) {
			dash = ` stroke-dasharray="5 4"`
		}
		fmt.Fprintf(&b, `    <path id="%s" d="%s"%s/>`+"\n", html.EscapeString(e.Path.ConnectionID), e.Path.SVG(), dash)
		head := e.Path.Arrowhead(svgArrowLength)
		fmt.Fprintf(&b, `    <polygon points="%s" fill="#555555" stroke="none"/>`+"\n", points(head[:]))
		if e.Label != "" {
			at := e.Path.LabelAnchor()
			fmt.Fprintf(&b, `    <text x="%s" y="%s" fill="#333333" stroke="none" font-size="11" text-anchor="middle" dy="-4">%s</text>`+"\n",
				num(at.X), num(at.Y), html.EscapeString(e.Label))
		}
	}
	b.WriteString("  </g>\n")

	b.WriteString(`  <g class="nodes" font-family="sans-serif" font-size="12">` + "\n")
	for _, n := range model.Nodes {
		fill, text := svgFill(n)
		fmt.Fprintf(&b, `    <g id="%s" class="%s">`+"\n", html.EscapeString(n.ID), n.Kind)
		b.WriteString("      " + svgShape(n, fill) + "\n")
		fmt.Fprintf(&b, `      <text x="%s" y="%s" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			num(n.Position.X), num(n.Position.Y), text, html.EscapeString(firstLine(n.Label)))
		b.WriteString("    </g>\n")
	}
	b.WriteString("  </g>\n")

	b.WriteString("</svg>\n")
	return b.String()
}

// svgShape returns the outline element for a node.
func svgShape(n *Node, fill string) string {
	c := n.Position
	hw, hh := n.Size.W/2, n.Size.H/2
	const stroke = `stroke="#333333" stroke-width="1.5"`

	switch n.Kind {
	case NodeKindStart:
		return fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s" %s/>`, num(c.X), num(c.Y), num(hw), fill, stroke)
	case NodeKindEnd:
		return fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s" stroke="#333333" stroke-width="3"/>`, num(c.X), num(c.Y), num(hw), fill)
	case NodeKindGateway:
		return fmt.Sprintf(`<polygon points="%s" fill="%s" %s/>`, points([]graph.Point{
			{X: c.X, Y: c.Y - hh},
			{X: c.X + hw, Y: c.Y},
			{X: c.X, Y: c.Y + hh},
			{X: c.X - hw, Y: c.Y},
		}), fill, stroke)
	default:
		return fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" rx="6" fill="%s" %s/>`,
			num(c.X-hw), num(c.Y-hh), num(n.Size.W), num(n.Size.H), fill, stroke)
	}
}

func points(ps []graph.Point) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	v = math.Round(v*100) / 100
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
