package diagram

import (
	"fmt"
	"strings"
)

// statusTag returns a short ASCII indicator for a status string.
func statusTag(status string) string {
	switch status {
	case "completed":
		return "[OK]"
	case "in_progress":
		return "[RUN]"
	case "pending":
		return "[PEND]"
	case "rejected":
		return "[REJ]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a text diagram, one row of boxes per
// layout level. Connections that do not run from one level to the next are
// listed after the rows.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n\n", model.Title)
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := findNode(model.Nodes, nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	var other []Edge
	for _, e := range model.Edges {
		from, to := model.node(e.From), model.node(e.To)
		if from == nil || to == nil || to.Level != from.Level+1 {
			other = append(other, e)
		}
	}
	if len(other) > 0 {
		b.WriteString("\n--- other connections ---\n")
		for _, e := range other {
			label := ""
			if e.Label != "" {
				label = fmt.Sprintf(" [%s]", e.Label)
			}
			fmt.Fprintf(&b, "  %s ─→ %s%s\n", e.From, e.To, label)
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node. Start and end nodes get rounded
// corners, gateways a "<?>" marker.
func makeBox(node *Node) asciiBox {
	label := firstLine(node.Label)
	if node.Kind == NodeKindGateway {
		label = "<?> " + label
	}
	contentLines := []string{label}

	if node.Status != nil {
		if tag := statusTag(node.Status.Status); tag != "" {
			contentLines = append(contentLines, tag)
		}
		if node.Status.SLADays != nil {
			contentLines = append(contentLines, fmt.Sprintf("sla %dd", *node.Status.SLADays))
		}
	}

	maxLen := 0
	for _, line := range contentLines {
		if n := len([]rune(line)); n > maxLen {
			maxLen = n
		}
	}
	width := maxLen + 4 // 2 border + 2 padding

	tl, tr, bl, br := "┌", "┐", "└", "┘"
	if node.Kind == NodeKindStart || node.Kind == NodeKindEnd {
		tl, tr, bl, br = "╭", "╮", "╰", "╯"
	}

	lines := []string{tl + strings.Repeat("─", width-2) + tr}
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-len([]rune(content)))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, bl+strings.Repeat("─", width-2)+br)

	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
