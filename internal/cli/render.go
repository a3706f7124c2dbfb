package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/pipeline"
	"github.com/matzehuels/storyflow/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file (single format), base path (several), or "-" for stdout
	formats   []string // svg, png, pdf, dot
	direction string   // TB or LR
	detailed  bool     // character, level and besitos in node labels
	highlight bool     // color entry, orphans, unreachable nodes and cycles
	entry     string
	noCache   bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{highlight: true}

	cmd := &cobra.Command{
		Use:   "render <story>",
		Short: "Draw the story graph as SVG, PNG, PDF or DOT",
		Long: `Render draws fragments as boxes and decisions as labelled arrows.

By default problems are highlighted: the entry is outlined green, orphans
orange, unreachable fragments are greyed out, loops are drawn red and
decisions pointing at missing fragments end in a red placeholder.

PNG and PDF output require librsvg (rsvg-convert).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().StringVar(&opts.direction, "direction", pipeline.DefaultDirection, "layout direction: TB or LR")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show character, level and besitos in nodes")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", opts.highlight, "highlight entry, orphans, unreachable fragments and cycles")
	cmd.Flags().StringVar(&opts.entry, "entry", "", "entry fragment ID")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	if opts.output == "-" && len(opts.formats) > 1 {
		return fmt.Errorf("stdout output supports a single format")
	}
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	s, err := runner.Load(ctx, input)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Rendering "+strings.Join(opts.formats, ", ")+"...")
	spinner.Start()
	artifacts, cached, err := runner.Render(ctx, s, pipeline.Options{
		Entry:     opts.entry,
		Formats:   opts.formats,
		Direction: opts.direction,
		Detailed:  opts.detailed,
		Highlight: opts.highlight,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	if opts.output == "-" {
		for _, data := range artifacts {
			_, err = c.out.Write(data)
		}
		return err
	}

	base := basePath(opts.output, input)
	formats := slices.Sorted(maps.Keys(artifacts))
	var written []string
	for _, format := range formats {
		path := base + "." + format
		if len(formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := writeFile(path, artifacts[format]); err != nil {
			return err
		}
		written = append(written, path)
	}

	printSuccess("Rendered %s", input)
	for _, p := range written {
		printFile(p)
	}
	printCacheStatus(cached)
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if slices.Contains(render.Formats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeFile creates path, overwriting an existing file.
func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(data)
	return err
}

// nopCloser wraps an io.Writer to implement io.WriteCloser with a no-op Close.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for path, or stdout when path is empty.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{stdout}, nil
	}
	return os.Create(path)
}
