package domain

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// RunStatus is the processing state of a document.
type RunStatus string

const (
	RunUnstarted RunStatus = "UNSTART"
	RunRunning   RunStatus = "RUNNING"
	RunCancel    RunStatus = "CANCEL"
	RunDone      RunStatus = "DONE"
	RunFail      RunStatus = "FAIL"
)

// ValidRunStatuses is the set of run states accepted in list filters.
var ValidRunStatuses = map[RunStatus]bool{
	RunUnstarted: true,
	RunRunning:   true,
	RunCancel:    true,
	RunDone:      true,
	RunFail:      true,
}

// Terminal reports whether no further automatic progress occurs from s.
func (s RunStatus) Terminal() bool {
	return s == RunDone || s == RunFail || s == RunCancel
}

// FileType classifies the uploaded file.
type FileType string

const (
	FileTypeDoc     FileType = "doc"
	FileTypePDF     FileType = "pdf"
	FileTypeVisual  FileType = "visual"
	FileTypeAural   FileType = "aural"
	FileTypeVirtual FileType = "virtual"
	FileTypeFolder  FileType = "folder"
	FileTypeOther   FileType = "other"
)

// ValidFileTypes is the set of file types accepted in list filters.
var ValidFileTypes = map[FileType]bool{
	FileTypeDoc:     true,
	FileTypePDF:     true,
	FileTypeVisual:  true,
	FileTypeAural:   true,
	FileTypeVirtual: true,
	FileTypeFolder:  true,
	FileTypeOther:   true,
}

// ParserType identifies the chunking strategy assigned to a document.
type ParserType string

const (
	ParserNaive        ParserType = "naive"
	ParserTable        ParserType = "table"
	ParserPicture      ParserType = "picture"
	ParserAudio        ParserType = "audio"
	ParserPresentation ParserType = "presentation"
	ParserEmail        ParserType = "email"
)

// FileNameLimit is the maximum document name length in bytes.
const FileNameLimit = 255

// Document is a file ingested into a knowledge base.
// ChunkNum, TokenNum and ProcessDuration are non-negative and zero
// exactly when the document is UNSTART or has just been reset.
type Document struct {
	ID              string         `json:"id"`
	KBID            string         `json:"kb_id"`
	CreatedBy       string         `json:"created_by"`
	ParserID        ParserType     `json:"parser_id"`
	PipelineID      string         `json:"pipeline_id,omitempty"`
	ParserConfig    map[string]any `json:"parser_config"`
	Run             RunStatus      `json:"run"`
	Progress        float32        `json:"progress"`
	ProgressMsg     string         `json:"progress_msg"`
	ChunkNum        int64          `json:"chunk_num"`
	TokenNum        int64          `json:"token_num"`
	ProcessDuration float64        `json:"process_duration"`
	Meta            map[string]any `json:"meta_fields,omitempty"`
	Type            FileType       `json:"type"`
	Name            string         `json:"name"`
	Suffix          string         `json:"suffix"`
	Location        string         `json:"location"`
	Size            int64          `json:"size"`
	Thumbnail       string         `json:"thumbnail,omitempty"`
	Available       bool           `json:"available"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// FileSuffix returns the lowercase filename extension without the dot.
func FileSuffix(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

var (
	visualSuffixes       = regexp.MustCompile(`\.(jpg|jpeg|png|gif|bmp|tif|tiff|webp|svg|ico)$`)
	auralSuffixes        = regexp.MustCompile(`\.(wav|mp3|m4a|flac|ogg|aac)$`)
	presentationSuffixes = regexp.MustCompile(`\.(ppt|pptx|pages)$`)
	emailSuffixes        = regexp.MustCompile(`\.(eml|msg)$`)
)

// InferParser picks the parser for a filename, falling back to the
// knowledge base's default for ordinary documents.
func InferParser(name string, kbDefault ParserType) ParserType {
	lower := strings.ToLower(name)
	switch {
	case visualSuffixes.MatchString(lower):
		return ParserPicture
	case auralSuffixes.MatchString(lower):
		return ParserAudio
	case presentationSuffixes.MatchString(lower):
		return ParserPresentation
	case emailSuffixes.MatchString(lower):
		return ParserEmail
	}
	if kbDefault == "" {
		return ParserNaive
	}
	return kbDefault
}

// ValidateMeta checks that user metadata holds scalar values only.
func ValidateMeta(meta map[string]any) error {
	for k, v := range meta {
		switch v.(type) {
		case string, int, int64, float64, bool, nil:
		default:
			return &InvalidInputError{Field: "meta." + k, Reason: "only scalar values are supported"}
		}
	}
	return nil
}
