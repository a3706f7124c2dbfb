// Package render turns story graphs into images.
//
// # Overview
//
// The [nodelink] subpackage draws a story as a Graphviz node-link diagram:
// fragments are boxes, decisions are labelled arrows. This package holds the
// format conversion shared by all renderers.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg):
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// When rsvg-convert is not installed both return an UNSUPPORTED error from
// package errors with installation hints.
//
// [nodelink]: github.com/matzehuels/storyflow/pkg/render/nodelink
package render
