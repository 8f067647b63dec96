package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name string
		file FileInfo
		want Verdict
	}{
		{
			name: "pdf under limit",
			file: FileInfo{Size: 1_048_576, ContentType: MimePDF},
			want: Verdict{Valid: true},
		},
		{
			name: "exactly at limit",
			file: FileInfo{Size: 5_242_880, ContentType: MimePNG},
			want: Verdict{Valid: true},
		},
		{
			name: "one byte over limit",
			file: FileInfo{Size: 5_242_881, ContentType: MimePDF},
			want: Verdict{Reason: RejectTooLarge},
		},
		{
			name: "unsupported type",
			file: FileInfo{Size: 10_000, ContentType: "image/gif"},
			want: Verdict{Reason: RejectUnsupportedType},
		},
		{
			name: "oversize and unsupported reports size",
			file: FileInfo{Size: 6_000_000, ContentType: "image/gif"},
			want: Verdict{Reason: RejectTooLarge},
		},
		{
			name: "empty content type",
			file: FileInfo{Size: 10},
			want: Verdict{Reason: RejectUnsupportedType},
		},
		{
			name: "parameters and case are ignored",
			file: FileInfo{Size: 10, ContentType: "Image/JPEG; name=scan.jpg"},
			want: Verdict{Valid: true},
		},
		{
			name: "zero byte file",
			file: FileInfo{Size: 0, ContentType: MimeJPEG},
			want: Verdict{Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateDocument(tt.file))
		})
	}
}

func TestRejectReason_Message(t *testing.T) {
	assert.NotEmpty(t, RejectTooLarge.Message())
	assert.NotEmpty(t, RejectUnsupportedType.Message())
	assert.Empty(t, RejectReason("").Message())
}
