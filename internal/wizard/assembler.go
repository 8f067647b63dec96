package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"welfareportal/internal/metrics"
	"welfareportal/internal/storage"
	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus"
)

type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, opts storage.UploadOptions) (string, error)
}

type RecordStore interface {
	CreateApplication(ctx context.Context, application *types.Application) error
}

// Guard remembers submission tokens so a replayed submit is refused.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Assembler struct {
	logger  logrus.FieldLogger
	blobs   BlobStore
	records RecordStore
	guard   Guard
	now     func() time.Time
}

type AssemblerOption func(*Assembler)

func WithGuard(guard Guard) AssemblerOption {
	return func(a *Assembler) {
		a.guard = guard
	}
}

func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		a.now = now
	}
}

func NewAssembler(logger logrus.FieldLogger, blobs BlobStore, records RecordStore, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		logger:  logger,
		blobs:   blobs,
		records: records,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit uploads the draft's documents one at a time, then writes a single
// application record with status submitted.
//
// The first failed upload aborts the submission. Blobs already uploaded by
// the failed attempt stay in the bucket and a retry uploads them again.
func (a *Assembler) Submit(ctx context.Context, draft *Draft, scheme *types.Scheme, user *types.Identity) (*types.Application, error) {
	application, err := a.submit(ctx, draft, scheme, user)
	metrics.SubmissionsTotal.WithLabelValues(submissionOutcome(err)).Inc()
	return application, err
}

func (a *Assembler) submit(ctx context.Context, draft *Draft, scheme *types.Scheme, user *types.Identity) (*types.Application, error) {
	if !user.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	sub, err := draft.beginSubmit()
	if err != nil {
		return nil, err
	}
	defer draft.endSubmit()

	if missing := sub.personal.MissingFields(); len(missing) > 0 {
		return nil, &IncompletePersonalInfoError{Fields: missing}
	}

	if missing := missingRequired(sub.slots); len(missing) > 0 {
		return nil, &MissingDocumentsError{Documents: missing}
	}

	logger := a.logger.WithFields(logrus.Fields{
		"user_id":   user.UserID,
		"scheme_id": scheme.ID,
	})

	guardKey := "submission:" + sub.token
	if a.guard != nil {
		acquired, err := a.guard.Acquire(ctx, guardKey)
		switch {
		case err != nil:
			logger.WithError(err).Warn("submission guard unavailable, continuing without it")
		case !acquired:
			return nil, ErrDuplicateSubmission
		}
	}

	application, err := a.uploadAndRecord(ctx, logger, sub, scheme, user)
	if err != nil && a.guard != nil {
		if relErr := a.guard.Release(context.WithoutCancel(ctx), guardKey); relErr != nil {
			logger.WithError(relErr).Warn("failed to release submission guard")
		}
	}

	return application, err
}

func (a *Assembler) uploadAndRecord(ctx context.Context, logger logrus.FieldLogger, sub *submission, scheme *types.Scheme, user *types.Identity) (*types.Application, error) {
	documents := make([]types.UploadedDocument, 0, len(sub.slots))

	for i, slot := range sub.slots {
		if slot.File == nil {
			continue
		}

		uploadedAt := a.now()
		key := documentKey(user.UserID, scheme.ID, uploadedAt, i, slot.File.Filename)

		path, err := a.blobs.Upload(ctx, key, slot.File.Reader(), storage.UploadOptions{
			ContentType: slot.File.ContentType,
			Size:        slot.File.Size(),
			Metadata: map[string]string{
				"original-filename": slot.File.Filename,
				"document-name":     slot.Name,
			},
		})
		if err != nil {
			metrics.DocumentUploadsTotal.WithLabelValues("failed").Inc()
			logger.WithError(err).WithField("document", slot.Name).Error("document upload failed")
			return nil, &UploadFailedError{Document: slot.Name, Err: err}
		}
		metrics.DocumentUploadsTotal.WithLabelValues("ok").Inc()

		logger.WithFields(logrus.Fields{
			"document":    slot.Name,
			"storage_key": path,
			"size_bytes":  slot.File.Size(),
		}).Info("document uploaded")

		documents = append(documents, types.UploadedDocument{
			Name:             slot.Name,
			StorageKey:       path,
			OriginalFilename: slot.File.Filename,
			SizeBytes:        slot.File.Size(),
			ContentType:      slot.File.ContentType,
			UploadedAt:       uploadedAt,
		})
	}

	submittedAt := a.now()
	token := sub.token
	application := &types.Application{
		UserID:       user.UserID,
		SchemeID:     scheme.ID,
		Status:       types.ApplicationStatusSubmitted,
		PersonalInfo: trimPersonalInfo(sub.personal),
		Documents:    documents,
		Metadata: map[string]any{
			"scheme_name": scheme.Title,
			"step_count":  sub.steps,
		},
		IdempotencyKey: &token,
		SubmittedAt:    &submittedAt,
	}

	if err := a.records.CreateApplication(ctx, application); err != nil {
		logger.WithError(err).Error("failed to write application record")
		return nil, &RecordWriteFailedError{Err: err}
	}

	logger.WithField("application_id", application.ID).Info("application submitted")

	return application, nil
}

func missingRequired(slots []Slot) []string {
	missing := make([]string, 0)
	for _, slot := range slots {
		if slot.Required && slot.Status != SlotUploaded {
			missing = append(missing, slot.Name)
		}
	}
	return missing
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func documentKey(userID, schemeID string, at time.Time, index int, filename string) string {
	return fmt.Sprintf("%s/%s/%d-%d_%s", userID, schemeID, at.UnixMilli(), index, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}

func submissionOutcome(err error) string {
	if err == nil {
		return "submitted"
	}

	var (
		incomplete *IncompletePersonalInfoError
		missing    *MissingDocumentsError
		upload     *UploadFailedError
		write      *RecordWriteFailedError
	)

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	case errors.As(err, &incomplete), errors.As(err, &missing):
		return "invalid"
	case errors.As(err, &upload):
		return "upload_failed"
	case errors.As(err, &write):
		return "write_failed"
	}
	return "error"
}
