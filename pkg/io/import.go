package io

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/story"
)

// Read decodes a story document in the given format from r.
//
// Read returns an INVALID_STORY error if the input cannot be decoded, has no
// "fragments" list, or contains a fragment without a "fragment_id" key. The
// returned story is independent of r. Read does not close r.
func Read(r io.Reader, format Format) (*story.Story, error) {
	var doc document
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&doc)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown story format %q", format)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidStory, err, "decode %s", format)
	}
	return doc.toStory()
}

func (d document) toStory() (*story.Story, error) {
	if d.Fragments == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidStory, "story has no fragments list")
	}
	s := &story.Story{
		Title:       d.Title,
		Description: d.Description,
		Entry:       d.Entry,
		Fragments:   make([]story.Fragment, 0, len(*d.Fragments)),
	}
	for i, f := range *d.Fragments {
		if f.ID == nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidStory, "fragment #%d has no fragment_id", i+1)
		}
		s.Fragments = append(s.Fragments, f.toStory())
	}
	return s, nil
}

// ReadJSON is [Read] with [FormatJSON].
func ReadJSON(r io.Reader) (*story.Story, error) {
	return Read(r, FormatJSON)
}

// Import reads the story file at path, choosing the format from its
// extension. A missing file yields a FILE_NOT_FOUND error.
func Import(path string) (*story.Story, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "story file %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return Read(f, format)
}

// ImportJSON reads a JSON story file regardless of its extension.
func ImportJSON(path string) (*story.Story, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "story file %s not found", path)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ReadJSON(f)
}
