// Package nodelink renders story graphs as node-link diagrams.
//
// # Overview
//
// Fragments become rounded boxes filled by speaking character, and
// decisions become labelled arrows. Terminal fragments get a double
// border. With highlighting enabled the diagram doubles as a visual
// validation report:
//
//   - the entry fragment is outlined in green
//   - orphaned fragments are outlined in orange
//   - unreachable fragments are greyed out and dashed
//   - edges that lie on a cycle are drawn thick red
//   - decisions pointing at missing fragments end in a red dashed
//     "missing" placeholder
//
// # Usage
//
//	dot := nodelink.ToDOT(fragments, nodelink.Options{Highlight: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
