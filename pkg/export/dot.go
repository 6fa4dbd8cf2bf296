// Package export renders a Domain Graph to Graphviz DOT, SVG and PNG for
// sharing outside the interactive surface.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"onionscope/pkg/graph"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes file/line counts and the module path in labels.
	// When false, only the module name is shown.
	Detailed bool

	// ClusterByTier groups nodes into one subgraph per architecture tier,
	// matching the vertical banding of the interactive layout.
	ClusterByTier bool
}

// tierFill matches the tier banding colors used by the interactive view.
var tierFill = map[graph.Tier]string{
	graph.TierPresentation:   "lightblue",
	graph.TierBusiness:       "white",
	graph.TierData:           "lightyellow",
	graph.TierInfrastructure: "lightgrey",
}

// edgeStyle distinguishes relationship types.
var edgeStyle = map[graph.RelationType]string{
	graph.RelationImport:    "solid",
	graph.RelationImplement: "dashed",
	graph.RelationExtend:    "dashed",
	graph.RelationCompose:   "dotted",
	graph.RelationCall:      "solid",
}

// ToDOT converts a Domain Graph to Graphviz DOT. The resulting string can
// be rendered with [RenderSVG] or [RenderPNG].
func ToDOT(d *graph.Domain, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph onion {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if opts.ClusterByTier {
		for _, tier := range graph.TierOrder {
			nodes := nodesInTier(d, tier)
			if len(nodes) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "  subgraph cluster_%s {\n", tier)
			fmt.Fprintf(&buf, "    label=%q;\n", tierLabel(tier))
			buf.WriteString("    style=dashed;\n")
			for _, n := range nodes {
				writeNode(&buf, "    ", n, opts.Detailed)
			}
			buf.WriteString("  }\n")
		}
	} else {
		for i := range d.Nodes {
			writeNode(&buf, "  ", &d.Nodes[i], opts.Detailed)
		}
	}

	buf.WriteString("\n")
	for _, r := range d.Relationships {
		style := edgeStyle[r.Type]
		if style == "" {
			style = "solid"
		}
		fmt.Fprintf(&buf, "  %q -> %q [style=%s];\n", r.Source, r.Target, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func tierLabel(tier graph.Tier) string {
	s := string(tier)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nodesInTier(d *graph.Domain, tier graph.Tier) []*graph.DomainNode {
	var out []*graph.DomainNode
	for i := range d.Nodes {
		if graph.ParseTier(string(d.Nodes[i].ArchitectureLayer)) == tier {
			out = append(out, &d.Nodes[i])
		}
	}
	return out
}

func writeNode(buf *bytes.Buffer, indent string, n *graph.DomainNode, detailed bool) {
	label := n.DisplayName()
	if detailed {
		parts := []string{label, n.Path}
		if n.FileCount > 0 {
			parts = append(parts, fmt.Sprintf("%d files / %d lines", n.FileCount, n.LineCount))
		}
		label = strings.Join(parts, "\n")
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	if fill := tierFill[graph.ParseTier(string(n.ArchitectureLayer))]; fill != "" && fill != "white" {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%s", fill))
	}
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(attrs, ", "))
}
