package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/render"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds character, level, cost, reward and role to node labels.
	// When false, only the fragment ID is shown.
	Detailed bool
	// Highlight colors the entry point, unreachable fragments, orphans,
	// cycle edges and broken decisions.
	Highlight bool
	// Direction is the Graphviz rankdir: "TB" (default) or "LR".
	Direction string
	// Entry overrides the entry fragment, as [flow.WithEntry].
	Entry string
}

const maxEdgeLabel = 28

var characterFill = map[story.Character]string{
	story.CharacterLucien: "#dbeafe",
	story.CharacterDiana:  "#fce7f3",
}

// ToDOT converts a fragment collection to Graphviz DOT source.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Decisions pointing at missing fragments are drawn as edges to red
// placeholder nodes so broken links stay visible. Decisions without a
// target are omitted.
func ToDOT(fragments []story.Fragment, opts Options) string {
	dir := strings.ToUpper(opts.Direction)
	if dir != "LR" {
		dir = "TB"
	}

	var (
		reach   flow.ReachabilityReport
		orphans = map[string]bool{}
		onCycle = map[[2]string]bool{}
	)
	if opts.Highlight {
		reach = flow.Reachability(fragments, flow.WithEntry(opts.Entry))
		res := flow.Validate(fragments, flow.WithEntry(opts.Entry))
		for _, w := range res.Warnings {
			if w.Category == flow.CategoryOrphanedFragment {
				orphans[w.FragmentID] = true
			}
		}
		for _, c := range flow.DedupeCycles(flow.DetectCycles(fragments)) {
			for i, id := range c.Path {
				onCycle[[2]string{id, c.Path[(i+1)%len(c.Path)]}] = true
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=16, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11, color=\"#475569\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	known := story.Index(fragments)
	seen := make(map[string]bool, len(fragments))
	for _, f := range fragments {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(f, opts.Detailed))}
		if fill, ok := characterFill[f.Character]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
		}
		if f.IsTerminal() {
			attrs = append(attrs, "peripheries=2")
		}
		if opts.Highlight {
			attrs = append(attrs, highlightAttrs(f.ID, reach, orphans)...)
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", f.ID, strings.Join(attrs, ", "))
	}

	missing := map[string]bool{}
	prefix := placeholderPrefix(known)
	buf.WriteString("\n")
	for _, f := range fragments {
		for i, d := range f.Decisions {
			if !d.HasTarget() {
				continue
			}
			attrs := []string{fmt.Sprintf("label=%q", edgeLabel(i, d.Text))}
			_, exists := known[d.NextFragment]
			switch {
			case !exists:
				missing[d.NextFragment] = true
				attrs = append(attrs, "color=red", "fontcolor=red", "style=dashed")
			case onCycle[[2]string{f.ID, d.NextFragment}]:
				attrs = append(attrs, "color=\"#dc2626\"", "penwidth=2")
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", f.ID, placeholderID(prefix, d.NextFragment, !exists), strings.Join(attrs, ", "))
		}
	}

	if len(missing) > 0 {
		buf.WriteString("\n")
		for _, id := range slices.Sorted(maps.Keys(missing)) {
			fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, style=\"dashed\", color=red, fontcolor=red];\n",
				placeholderID(prefix, id, true), "missing: "+id)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func highlightAttrs(id string, reach flow.ReachabilityReport, orphans map[string]bool) []string {
	switch {
	case id == reach.Entry:
		return []string{"color=\"#16a34a\"", "penwidth=3"}
	case orphans[id]:
		return []string{"color=\"#ea580c\"", "penwidth=2", "style=\"rounded,filled,dashed\""}
	case !reach.IsReachable(id):
		return []string{"color=\"#94a3b8\"", "fontcolor=\"#64748b\"", "style=\"rounded,filled,dashed\""}
	}
	return nil
}

// placeholderPrefix returns "missing:", padded with leading underscores
// until no fragment ID starts with it. Placeholder node IDs are the prefix
// plus the missing target, so they never name a real fragment.
func placeholderPrefix(known map[string]int) string {
	prefix := "missing:"
	for taken := true; taken; {
		taken = false
		for id := range known {
			if strings.HasPrefix(id, prefix) {
				taken = true
				prefix = "_" + prefix
				break
			}
		}
	}
	return prefix
}

func placeholderID(prefix, id string, missing bool) string {
	if !missing {
		return id
	}
	return prefix + id
}

func fmtLabel(f story.Fragment, detailed bool) string {
	if !detailed {
		return f.ID
	}
	parts := []string{fmt.Sprintf("%s · level %d", f.Character, f.Level)}
	if f.RequiredBesitos > 0 || f.RewardBesitos > 0 {
		parts = append(parts, fmt.Sprintf("cost %d · reward %d", f.RequiredBesitos, f.RewardBesitos))
	}
	if f.RequiredRole != "" && f.RequiredRole != story.RoleNormal {
		parts = append(parts, "requires "+string(f.RequiredRole))
	}
	return f.ID + "\n" + strings.Join(parts, "\n")
}

func edgeLabel(i int, text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > maxEdgeLabel {
		text = string(r[:maxEdgeLabel-1]) + "…"
	}
	if text == "" {
		return strconv.Itoa(i + 1)
	}
	return fmt.Sprintf("%d. %s", i+1, text)
}

// RenderSVG lays out a story graph produced by [ToDOT] with the embedded
// Graphviz and returns standalone SVG sized to the drawing.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse story graph: %w", err)
	}
	defer graph.Close()

	var out bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &out); err != nil {
		return nil, fmt.Errorf("layout story graph: %w", err)
	}
	return normalizeViewBox(out.Bytes()), nil
}

var (
	svgOpenTag  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxAttr = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-based root element with one whose
// width and height match the viewBox, so browsers and rsvg scale the
// diagram the same way. Input without a usable viewBox is returned as is.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxAttr.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	width, _ := strconv.ParseFloat(string(m[3]), 64)
	height, _ := strconv.ParseFloat(string(m[4]), 64)
	if width <= 0 || height <= 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		width, height, width, height)
	return svgOpenTag.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders the story graph to PDF. The conversion shells out to
// rsvg-convert (librsvg2-bin on Debian, librsvg on Homebrew).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG is [RenderPDF] for raster output. scale multiplies the pixel
// size; 2 suits high-DPI screens.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
