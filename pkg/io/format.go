package io

import (
	"path/filepath"
	"strings"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
)

// Format is a story document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatTOML, FormatYAML}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidFormat, "cannot infer story format from %q (want .json, .toml, .yaml or .yml)", path)
	}
}

// ParseFormat parses a format name such as "yml" or "JSON".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown story format %q", name)
	}
}
