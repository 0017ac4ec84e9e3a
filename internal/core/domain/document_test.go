package domain

import (
	"errors"
	"testing"
)

func TestInferParser(t *testing.T) {
	tests := []struct {
		name      string
		kbDefault ParserType
		want      ParserType
	}{
		{"report.pdf", ParserNaive, ParserNaive},
		{"report.pdf", ParserTable, ParserTable},
		{"photo.JPG", ParserNaive, ParserPicture},
		{"talk.pptx", ParserTable, ParserPresentation},
		{"memo.eml", ParserNaive, ParserEmail},
		{"song.mp3", ParserNaive, ParserAudio},
		{"notes.txt", "", ParserNaive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferParser(tt.name, tt.kbDefault); got != tt.want {
				t.Errorf("InferParser(%q, %q) = %q, want %q", tt.name, tt.kbDefault, got, tt.want)
			}
		})
	}
}

func TestFileSuffix(t *testing.T) {
	if got := FileSuffix("Nested/Path/Report.PDF"); got != "pdf" {
		t.Errorf("expected pdf, got %q", got)
	}
	if got := FileSuffix("noext"); got != "" {
		t.Errorf("expected empty suffix, got %q", got)
	}
}

func TestRunStatus_Terminal(t *testing.T) {
	for status, terminal := range map[RunStatus]bool{
		RunUnstarted: false,
		RunRunning:   false,
		RunCancel:    true,
		RunDone:      true,
		RunFail:      true,
	} {
		if status.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), terminal)
		}
	}
}

func TestValidateMeta(t *testing.T) {
	if err := ValidateMeta(map[string]any{"author": "kim", "pages": 12, "score": 0.5, "draft": false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := ValidateMeta(map[string]any{"tags": []string{"a", "b"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
