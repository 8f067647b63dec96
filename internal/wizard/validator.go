package wizard

import (
	"mime"
	"strings"
)

// MaxDocumentSize is the largest accepted upload, in bytes.
const MaxDocumentSize int64 = 5 * 1024 * 1024

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var allowedDocumentTypes = map[string]bool{
	MimePDF:  true,
	MimeJPEG: true,
	MimePNG:  true,
}

type RejectReason string

const (
	RejectTooLarge        RejectReason = "too_large"
	RejectUnsupportedType RejectReason = "unsupported_type"
)

func (r RejectReason) Message() string {
	switch r {
	case RejectTooLarge:
		return "File is larger than 5 MB."
	case RejectUnsupportedType:
		return "Only PDF, JPEG and PNG files are accepted."
	}
	return ""
}

// FileInfo is what the validator knows about a candidate file: its size and
// the MIME type the client declared.
type FileInfo struct {
	Size        int64
	ContentType string
}

type Verdict struct {
	Valid  bool
	Reason RejectReason
}

// ValidateDocument checks a candidate file against the size limit and the
// allowed declared types. The declared type is trusted; file contents are
// never inspected.
func ValidateDocument(file FileInfo) Verdict {
	if file.Size > MaxDocumentSize {
		return Verdict{Reason: RejectTooLarge}
	}

	if !allowedDocumentTypes[normalizeContentType(file.ContentType)] {
		return Verdict{Reason: RejectUnsupportedType}
	}

	return Verdict{Valid: true}
}

func normalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}

	return mediaType
}
