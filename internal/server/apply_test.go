package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"welfareportal/internal/storage"
	"welfareportal/internal/wizard"
	"welfareportal/internal/wizard/mocks"
	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func personalForm() url.Values {
	return url.Values{
		"full_name":     {"Asha Rao"},
		"email":         {"asha@example.org"},
		"phone":         {"+919876543210"},
		"address":       {"12 Temple Road, Puri"},
		"date_of_birth": {"1990-04-12"},
		"occupation":    {"farmer"},
	}
}

func uploadRequest(t *testing.T, path string, slot int, filename, contentType string, size int) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("slot", fmt.Sprint(slot)))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{'x'}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestApplyFlow_SubmitsCompleteDraft(t *testing.T) {
	h := newHarness(t)
	base := "/schemes/pm-kisan/apply"

	rec := h.do(t, h.as(t, get(base), citizenToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Asha Rao"`)

	rec = h.do(t, h.as(t, postForm(base+"/personal", personalForm()), citizenToken))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, base, rec.Header().Get("Location"))

	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	assert.Equal(t, wizard.StepDocuments, draft.StepName())

	// Next is blocked until the required document is attached
	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))
	_, query := redirectQuery(t, rec)
	assert.Equal(t, "Please upload: Aadhaar Card.", query.Get("error"))

	rec = h.do(t, h.as(t, uploadRequest(t, base+"/documents", 0, "aadhaar.pdf", wizard.MimePDF, 2048), citizenToken))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, base, rec.Header().Get("Location"))
	assert.Equal(t, wizard.SlotUploaded, draft.Slots()[0].Status)

	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, wizard.StepSummary, draft.StepName())

	h.submitter.On("Submit", mock.Anything, draft, mock.MatchedBy(func(s *types.Scheme) bool {
		return s.ID == "pm-kisan"
	}), mock.MatchedBy(func(u *types.Identity) bool {
		return u.UserID == citizen.UserID
	})).Return(&types.Application{ID: "app-1"}, nil).Once()

	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	path, query := redirectQuery(t, rec)
	assert.Equal(t, "/applications/app-1", path)
	assert.Equal(t, "Your application has been submitted.", query.Get("notice"))

	_, ok = h.drafts.Get(citizen.UserID, "pm-kisan")
	assert.False(t, ok, "draft is discarded after submission")
	h.submitter.AssertExpectations(t)
}

func TestApplyFlow_AssemblerWritesOneSubmittedRecord(t *testing.T) {
	h := newHarness(t)
	blobs := &mocks.MockBlobStore{}
	records := &mocks.MockRecordStore{}
	logger, _ := test.NewNullLogger()
	h.start(t, wizard.NewAssembler(logger, blobs, records))

	base := "/schemes/pm-kisan/apply"
	const pdfSize = 2 << 20

	var uploaded int64
	blobs.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, citizen.UserID+"/pm-kisan/") && strings.HasSuffix(key, "-0_aadhaar.pdf")
	}), mock.Anything, mock.MatchedBy(func(opts storage.UploadOptions) bool {
		return opts.ContentType == wizard.MimePDF && opts.Size == pdfSize
	})).Run(func(args mock.Arguments) {
		n, err := io.Copy(io.Discard, args.Get(2).(io.Reader))
		require.NoError(t, err)
		uploaded = n
	}).Return(func(_ context.Context, key string, _ io.Reader, _ storage.UploadOptions) string {
		return key
	}, nil).Once()

	var written *types.Application
	records.On("CreateApplication", mock.Anything, mock.AnythingOfType("*types.Application")).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(*types.Application)
			written.ID = "app-42"
		}).
		Return(nil).Once()

	h.do(t, h.as(t, postForm(base+"/personal", personalForm()), citizenToken))
	rec := h.do(t, h.as(t, uploadRequest(t, base+"/documents", 0, "aadhaar.pdf", wizard.MimePDF, pdfSize), citizenToken))
	require.Equal(t, base, rec.Header().Get("Location"))
	h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	require.Equal(t, wizard.StepSummary, draft.StepName())

	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	path, query := redirectQuery(t, rec)
	assert.Equal(t, "/applications/app-42", path)
	assert.Equal(t, "Your application has been submitted.", query.Get("notice"))

	blobs.AssertNumberOfCalls(t, "Upload", 1)
	records.AssertNumberOfCalls(t, "CreateApplication", 1)
	assert.Equal(t, int64(pdfSize), uploaded)

	require.NotNil(t, written)
	assert.Equal(t, types.ApplicationStatusSubmitted, written.Status)
	assert.Equal(t, citizen.UserID, written.UserID)
	require.Len(t, written.Documents, 1)
	assert.Equal(t, "Aadhaar Card", written.Documents[0].Name)
	assert.Equal(t, int64(pdfSize), written.Documents[0].SizeBytes)

	assert.True(t, draft.Empty(), "draft is reset after submission")
	_, ok = h.drafts.Get(citizen.UserID, "pm-kisan")
	assert.False(t, ok)
}

func TestApplyFlow_RemoveOnSummaryBlocksSubmit(t *testing.T) {
	h := newHarness(t)
	base := "/schemes/pm-kisan/apply"

	h.do(t, h.as(t, postForm(base+"/personal", personalForm()), citizenToken))
	h.do(t, h.as(t, uploadRequest(t, base+"/documents", 0, "aadhaar.pdf", wizard.MimePDF, 128), citizenToken))
	h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	require.Equal(t, wizard.StepSummary, draft.StepName())

	rec := h.do(t, h.as(t, postForm(base+"/documents/0/remove", nil), citizenToken))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(t, h.as(t, get(base), citizenToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `disabled>Submit application</button>`)

	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))
	_, query := redirectQuery(t, rec)
	assert.Equal(t, "Please upload: Aadhaar Card.", query.Get("error"))
	assert.Equal(t, wizard.StepSummary, draft.StepName())

	h.do(t, h.as(t, uploadRequest(t, base+"/documents", 0, "aadhaar.pdf", wizard.MimePDF, 128), citizenToken))
	form := personalForm()
	form.Set("email", "")
	h.do(t, h.as(t, postForm(base+"/personal", form), citizenToken))

	rec = h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))
	_, query = redirectQuery(t, rec)
	assert.Equal(t, "Please complete all required personal details.", query.Get("error"))

	h.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyFlow_SubmissionFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	base := "/schemes/pm-kisan/apply"

	h.do(t, h.as(t, postForm(base+"/personal", personalForm()), citizenToken))
	h.do(t, h.as(t, uploadRequest(t, base+"/documents", 0, "aadhaar.pdf", wizard.MimePDF, 128), citizenToken))
	h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	h.submitter.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &wizard.UploadFailedError{Document: "Aadhaar Card"}).Once()

	rec := h.do(t, h.as(t, postForm(base+"/next", nil), citizenToken))

	path, query := redirectQuery(t, rec)
	assert.Equal(t, base, path)
	assert.Equal(t, "We could not upload Aadhaar Card. Please try again.", query.Get("error"))

	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	assert.Equal(t, wizard.StepSummary, draft.StepName())
}

func TestHandlePostApplyPersonal_Incomplete(t *testing.T) {
	h := newHarness(t)

	form := personalForm()
	form.Del("address")

	rec := h.do(t, h.as(t, postForm("/schemes/pm-kisan/apply/personal", form), citizenToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please complete all required personal details.")

	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	assert.Equal(t, wizard.StepPersonalInfo, draft.StepName())
	assert.Equal(t, "Asha Rao", draft.PersonalInfo().FullName)
}

func TestHandlePostApplyDocument_Rejections(t *testing.T) {
	tests := map[string]struct {
		slot        int
		contentType string
		size        int
		want        string
	}{
		"too large": {
			contentType: wizard.MimePDF,
			size:        int(wizard.MaxDocumentSize) + 1,
			want:        wizard.RejectTooLarge.Message(),
		},
		"unsupported type": {
			contentType: "application/zip",
			size:        64,
			want:        wizard.RejectUnsupportedType.Message(),
		},
		"unknown slot": {
			slot:        9,
			contentType: wizard.MimePNG,
			size:        64,
			want:        "That document is not part of this application.",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			base := "/schemes/pm-kisan/apply"

			rec := h.do(t, h.as(t, uploadRequest(t, base+"/documents", tc.slot, "file.bin", tc.contentType, tc.size), citizenToken))

			require.Equal(t, http.StatusSeeOther, rec.Code)
			_, query := redirectQuery(t, rec)
			assert.Equal(t, tc.want, query.Get("error"))
		})
	}
}

func TestHandlePostApplyRemoveDocument(t *testing.T) {
	h := newHarness(t)
	base := "/schemes/pm-kisan/apply"

	h.do(t, h.as(t, uploadRequest(t, base+"/documents", 1, "passbook.png", wizard.MimePNG, 64), citizenToken))
	draft, ok := h.drafts.Get(citizen.UserID, "pm-kisan")
	require.True(t, ok)
	require.Equal(t, wizard.SlotUploaded, draft.Slots()[1].Status)

	rec := h.do(t, h.as(t, postForm(base+"/documents/1/remove", nil), citizenToken))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, wizard.SlotPending, draft.Slots()[1].Status)
}

func TestHandlePostApplyCancel(t *testing.T) {
	h := newHarness(t)
	base := "/schemes/pm-kisan/apply"

	h.do(t, h.as(t, postForm(base+"/personal", personalForm()), citizenToken))
	require.Equal(t, 1, h.drafts.Len())

	rec := h.do(t, h.as(t, postForm(base+"/cancel", nil), citizenToken))

	path, query := redirectQuery(t, rec)
	assert.Equal(t, "/schemes/pm-kisan", path)
	assert.Equal(t, "Your application was cancelled.", query.Get("notice"))
	assert.Equal(t, 0, h.drafts.Len())
}

func TestHandlePostApplyCancel_NoDraft(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, h.as(t, postForm("/schemes/pm-kisan/apply/cancel", nil), citizenToken))

	path, query := redirectQuery(t, rec)
	assert.Equal(t, "/schemes/pm-kisan", path)
	assert.Empty(t, query.Get("notice"))
}

func TestHandleApplicationDetail_Ownership(t *testing.T) {
	h := newHarness(t)
	submitted := types.ApplicationStatusSubmitted
	h.applications.byID["app-1"] = &types.Application{
		ID: "app-1", UserID: citizen.UserID, SchemeID: "pm-kisan", Status: submitted,
		Metadata: map[string]any{"scheme_name": "PM-KISAN"},
	}
	h.applications.byID["app-2"] = &types.Application{
		ID: "app-2", UserID: "someone-else", SchemeID: "ayushman", Status: submitted,
	}
	h.applications.history["app-1"] = []*types.StatusChange{{ApplicationID: "app-1", ToStatus: submitted}}

	rec := h.do(t, h.as(t, get("/applications/app-1"), citizenToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PM-KISAN")
	assert.Contains(t, rec.Body.String(), "Submitted")

	rec = h.do(t, h.as(t, get("/applications/app-2"), citizenToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, h.as(t, get("/applications"), citizenToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/applications/app-1")
	assert.NotContains(t, rec.Body.String(), "/applications/app-2")
}
