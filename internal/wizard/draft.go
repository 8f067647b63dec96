package wizard

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"welfareportal/pkg/types"

	"github.com/google/uuid"
)

const (
	StepPersonalInfo = "personal_info"
	StepDocuments    = "documents"
	StepSummary      = "summary"
)

var ErrSlotNotFound = errors.New("document slot not found")

type SlotStatus string

const (
	SlotPending  SlotStatus = "pending"
	SlotUploaded SlotStatus = "uploaded"
	SlotInvalid  SlotStatus = "invalid"
)

func (s SlotStatus) Label() string {
	switch s {
	case SlotPending:
		return "Pending"
	case SlotUploaded:
		return "Ready"
	case SlotInvalid:
		return "Invalid"
	}
	return "Unknown"
}

// File is a document held in memory until the application is submitted.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (f *File) Size() int64 {
	return int64(len(f.Data))
}

func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

func (f *File) Info() FileInfo {
	return FileInfo{Size: f.Size(), ContentType: f.ContentType}
}

// Slot is one document requirement of the draft.
//
// Status is uploaded only when File is set and passed validation, and invalid
// only after a failed attempt. A slot that never saw a file stays pending.
type Slot struct {
	Name     string
	Required bool
	Status   SlotStatus
	File     *File
	Error    RejectReason
}

func (s *Slot) attach(file *File) Verdict {
	verdict := ValidateDocument(file.Info())
	if !verdict.Valid {
		s.Status = SlotInvalid
		s.File = nil
		s.Error = verdict.Reason
		return verdict
	}

	s.Status = SlotUploaded
	s.File = file
	s.Error = ""
	return verdict
}

func (s *Slot) remove() {
	s.Status = SlotPending
	s.File = nil
	s.Error = ""
}

// Draft is the in-progress state of one application wizard. It is owned by a
// single user session and never persisted.
type Draft struct {
	mu sync.Mutex

	schemeID   string
	token      string
	personal   types.PersonalInfo
	slots      []*Slot
	seq        *Sequencer
	submitting bool
}

func NewDraft(schemeID string, requirements []*types.SchemeDocument) *Draft {
	d := &Draft{
		schemeID: schemeID,
		token:    uuid.NewString(),
		slots:    make([]*Slot, 0, len(requirements)),
	}

	for _, req := range requirements {
		d.slots = append(d.slots, &Slot{
			Name:     req.Name,
			Required: req.Required,
			Status:   SlotPending,
		})
	}

	d.seq = NewSequencer(
		Step{Name: StepPersonalInfo, Valid: d.personalInfoComplete},
		Step{Name: StepDocuments, Valid: d.requiredDocumentsReady},
		Step{Name: StepSummary, Valid: d.readyToSubmit},
	)

	return d
}

func (d *Draft) SchemeID() string {
	return d.schemeID
}

// Token identifies this draft's submission attempt. It changes on Reset.
func (d *Draft) Token() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

func (d *Draft) PersonalInfo() types.PersonalInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.personal
}

func (d *Draft) SetPersonalInfo(info types.PersonalInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.personal = info
}

// Slots returns a copy of the draft's slots in requirement order.
func (d *Draft) Slots() []Slot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Slot, len(d.slots))
	for i, slot := range d.slots {
		out[i] = *slot
	}
	return out
}

// Attach validates file and binds it to the slot at index when it passes.
func (d *Draft) Attach(index int, file *File) (Verdict, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.slots) {
		return Verdict{}, ErrSlotNotFound
	}

	return d.slots[index].attach(file), nil
}

func (d *Draft) Remove(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.slots) {
		return ErrSlotNotFound
	}

	d.slots[index].remove()
	return nil
}

// MissingDocuments lists required slots that are not uploaded.
func (d *Draft) MissingDocuments() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.missingDocuments()
}

func (d *Draft) missingDocuments() []string {
	missing := make([]string, 0)
	for _, slot := range d.slots {
		if slot.Required && slot.Status != SlotUploaded {
			missing = append(missing, slot.Name)
		}
	}
	return missing
}

func (d *Draft) personalInfoComplete() bool {
	return d.personal.Complete()
}

func (d *Draft) requiredDocumentsReady() bool {
	return len(d.missingDocuments()) == 0
}

// readyToSubmit rechecks both earlier steps, since personal details and
// documents can still be edited from the summary.
func (d *Draft) readyToSubmit() bool {
	return d.personalInfoComplete() && d.requiredDocumentsReady()
}

func (d *Draft) Step() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.Current()
}

func (d *Draft) StepName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.CurrentStep().Name
}

func (d *Draft) StepCount() int {
	return d.seq.Len()
}

func (d *Draft) CanAdvance() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq.CanAdvance() && !d.submitting
}

// Next moves the wizard forward. On the summary step it returns MoveSubmit
// and the caller is expected to hand the draft to the Assembler.
func (d *Draft) Next() Move {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return MoveBlocked
	}
	return d.seq.Next()
}

func (d *Draft) Back() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq.Back()
}

func (d *Draft) Submitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}

// Reset empties the draft and returns it to the first step.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.personal = types.PersonalInfo{}
	for _, slot := range d.slots {
		slot.remove()
	}
	d.seq.Reset()
	d.submitting = false
	d.token = uuid.NewString()
}

// Empty reports whether the draft holds no user input.
func (d *Draft) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.personal != (types.PersonalInfo{}) {
		return false
	}
	for _, slot := range d.slots {
		if slot.Status != SlotPending {
			return false
		}
	}
	return d.seq.Current() == 1
}

// submission is the part of a draft the assembler works from.
type submission struct {
	token    string
	personal types.PersonalInfo
	slots    []Slot
	steps    int
}

func (d *Draft) beginSubmit() (*submission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting {
		return nil, ErrSubmissionInProgress
	}
	d.submitting = true

	slots := make([]Slot, len(d.slots))
	for i, slot := range d.slots {
		slots[i] = *slot
	}

	return &submission{
		token:    d.token,
		personal: d.personal,
		slots:    slots,
		steps:    d.seq.Len(),
	}, nil
}

func (d *Draft) endSubmit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitting = false
}

func trimPersonalInfo(p types.PersonalInfo) types.PersonalInfo {
	return types.PersonalInfo{
		FullName:    strings.TrimSpace(p.FullName),
		Email:       strings.TrimSpace(p.Email),
		Phone:       strings.TrimSpace(p.Phone),
		Address:     strings.TrimSpace(p.Address),
		DateOfBirth: strings.TrimSpace(p.DateOfBirth),
		Occupation:  strings.TrimSpace(p.Occupation),
		Income:      strings.TrimSpace(p.Income),
	}
}
