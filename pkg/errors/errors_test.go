package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	cause := errors.New("no such file")
	tests := []struct {
		err  *Error
		want string
	}{
		{New(ErrCodeInvalidInput, "max_paths must be positive, got %d", -1), "INVALID_INPUT: max_paths must be positive, got -1"},
		{Wrap(ErrCodeFileNotFound, cause, "open %s", "letter.json"), "FILE_NOT_FOUND: open letter.json: no such file"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("no such file")
	err := Wrap(ErrCodeFileNotFound, cause, "open story")
	if errors.Unwrap(err) != cause || !errors.Is(err, cause) {
		t.Errorf("cause lost: %v", err)
	}
	if New(ErrCodeBlocked, "gate").Unwrap() != nil {
		t.Error("New should have no cause")
	}
}

func TestCodeLookup(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    Code
		message string
	}{
		{"coded", New(ErrCodeInvalidStory, "fragments must be a list"), ErrCodeInvalidStory, "fragments must be a list"},
		{"wrapped coded", Wrap(ErrCodeFileNotFound, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeFileNotFound, "outer"},
		{"plain", errors.New("plain error"), "", "plain error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if Is(tt.err, ErrCodeUnsupported) {
				t.Error("Is matched an unrelated code")
			}
			if got := UserMessage(tt.err); got != tt.message {
				t.Errorf("UserMessage() = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestNilError(t *testing.T) {
	if Is(nil, ErrCodeInvalidInput) || GetCode(nil) != "" {
		t.Error("nil error should carry no code")
	}
}

func TestGetCodeOutermost(t *testing.T) {
	inner := New(ErrCodeInvalidStory, "fragments must be a list")
	err := fmt.Errorf("import letter.json: %w", Wrap(ErrCodeFileNotFound, inner, "outer"))

	if got := GetCode(err); got != ErrCodeFileNotFound {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeFileNotFound)
	}
	if UserMessage(err) != "outer" {
		t.Errorf("UserMessage() = %q, want %q", UserMessage(err), "outer")
	}
}
