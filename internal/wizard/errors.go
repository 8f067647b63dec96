package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAuthenticated means there is no signed-in user. Callers redirect
	// to sign-in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSubmissionInProgress is returned when the same draft is submitted
	// again before the first attempt settles.
	ErrSubmissionInProgress = errors.New("submission already in progress")

	// ErrDuplicateSubmission is returned when the submission guard has
	// already seen the draft's token.
	ErrDuplicateSubmission = errors.New("application already submitted")
)

type IncompletePersonalInfoError struct {
	Fields []string
}

func (e *IncompletePersonalInfoError) Error() string {
	return fmt.Sprintf("incomplete personal info: missing %s", strings.Join(e.Fields, ", "))
}

type MissingDocumentsError struct {
	Documents []string
}

func (e *MissingDocumentsError) Error() string {
	return fmt.Sprintf("missing required documents: %s", strings.Join(e.Documents, ", "))
}

type UploadFailedError struct {
	Document string
	Err      error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload %q failed: %v", e.Document, e.Err)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Err
}

type RecordWriteFailedError struct {
	Err error
}

func (e *RecordWriteFailedError) Error() string {
	return fmt.Sprintf("record write failed: %v", e.Err)
}

func (e *RecordWriteFailedError) Unwrap() error {
	return e.Err
}

// UserMessage turns a submission error into text for the applicant.
func UserMessage(err error) string {
	var (
		incomplete *IncompletePersonalInfoError
		missing    *MissingDocumentsError
		upload     *UploadFailedError
		write      *RecordWriteFailedError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in to submit your application."
	case errors.Is(err, ErrSubmissionInProgress):
		return "Your application is already being submitted."
	case errors.Is(err, ErrDuplicateSubmission):
		return "This application has already been submitted."
	case errors.As(err, &incomplete):
		return "Please complete all required personal details."
	case errors.As(err, &missing):
		return "Please upload: " + strings.Join(missing.Documents, ", ") + "."
	case errors.As(err, &upload):
		return fmt.Sprintf("We could not upload %s. Please try again.", upload.Document)
	case errors.As(err, &write):
		return "We could not save your application. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
