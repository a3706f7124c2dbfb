package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Write encodes s in the given format and writes it to w. The output can be
// read back with [Read].
func Write(s *story.Story, w io.Writer, format Format) error {
	out := *s
	if out.Fragments == nil {
		out.Fragments = []story.Fragment{}
	}

	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		err = enc.Encode(out)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(out)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(out)
		if err == nil {
			err = enc.Close()
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown story format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// WriteJSON is [Write] with [FormatJSON].
func WriteJSON(s *story.Story, w io.Writer) error {
	return Write(s, w, FormatJSON)
}

// Export writes s to path, choosing the format from the extension.
func Export(s *story.Story, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(s, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportJSON writes s as JSON to path regardless of its extension.
func ExportJSON(s *story.Story, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(s, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
