package render

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
)

func TestConvertWithoutRsvg(t *testing.T) {
	orig := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	defer func() { lookPath = orig }()

	ctx := context.Background()
	if _, err := ToPDF(ctx, []byte("<svg/>")); !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Errorf("ToPDF() error = %v, want UNSUPPORTED", err)
	}
	if _, err := ToPNG(ctx, []byte("<svg/>"), 2); !apperrors.Is(err, apperrors.ErrCodeUnsupported) {
		t.Errorf("ToPNG() error = %v, want UNSUPPORTED", err)
	}
}
