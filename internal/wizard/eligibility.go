package wizard

import (
	"strings"

	"welfareportal/pkg/types"
)

const (
	QuestionAge        = "age"
	QuestionGender     = "gender"
	QuestionCaste      = "caste"
	QuestionIncome     = "income"
	QuestionState      = "state"
	QuestionOccupation = "occupation"
)

type Option struct {
	Value string
	Label string
}

// Question is one page of the eligibility wizard.
type Question struct {
	Key     string
	Prompt  string
	Options []Option
}

var EligibilityQuestions = []Question{
	{
		Key:    QuestionAge,
		Prompt: "What is your age?",
		Options: []Option{
			{"below_18", "Below 18"},
			{"18_35", "18 to 35"},
			{"36_60", "36 to 60"},
			{"above_60", "Above 60"},
		},
	},
	{
		Key:    QuestionGender,
		Prompt: "What is your gender?",
		Options: []Option{
			{"female", "Female"},
			{"male", "Male"},
			{"transgender", "Transgender"},
		},
	},
	{
		Key:    QuestionCaste,
		Prompt: "Which category do you belong to?",
		Options: []Option{
			{"general", "General"},
			{"obc", "OBC"},
			{"sc", "SC"},
			{"st", "ST"},
		},
	},
	{
		Key:    QuestionIncome,
		Prompt: "What is your annual family income?",
		Options: []Option{
			{"below_1l", "Below ₹1 lakh"},
			{"1l_3l", "₹1 to 3 lakh"},
			{"3l_8l", "₹3 to 8 lakh"},
			{"above_8l", "Above ₹8 lakh"},
		},
	},
	{
		Key:    QuestionState,
		Prompt: "Which state do you live in?",
		Options: []Option{
			{"andhra_pradesh", "Andhra Pradesh"},
			{"bihar", "Bihar"},
			{"gujarat", "Gujarat"},
			{"karnataka", "Karnataka"},
			{"kerala", "Kerala"},
			{"madhya_pradesh", "Madhya Pradesh"},
			{"maharashtra", "Maharashtra"},
			{"odisha", "Odisha"},
			{"rajasthan", "Rajasthan"},
			{"tamil_nadu", "Tamil Nadu"},
			{"telangana", "Telangana"},
			{"uttar_pradesh", "Uttar Pradesh"},
			{"west_bengal", "West Bengal"},
			{"other", "Other"},
		},
	},
	{
		Key:    QuestionOccupation,
		Prompt: "What is your occupation?",
		Options: []Option{
			{"farmer", "Farmer"},
			{"student", "Student"},
			{"salaried", "Salaried"},
			{"self_employed", "Self-employed"},
			{"unemployed", "Unemployed"},
			{"retired", "Retired"},
		},
	},
}

// Eligibility walks the six eligibility questions. It is rebuilt from the
// answers and step on every request, so it holds no lock.
type Eligibility struct {
	answers types.EligibilityAnswers
	seq     *Sequencer
}

func NewEligibility() *Eligibility {
	return RestoreEligibility(types.EligibilityAnswers{}, 1)
}

// RestoreEligibility rebuilds a wizard at step. Out of range steps are
// clamped.
func RestoreEligibility(answers types.EligibilityAnswers, step int) *Eligibility {
	e := &Eligibility{answers: answers}

	steps := make([]Step, len(EligibilityQuestions))
	for i, q := range EligibilityQuestions {
		key := q.Key
		steps[i] = Step{Name: key, Valid: func() bool {
			return strings.TrimSpace(e.answer(key)) != ""
		}}
	}
	e.seq = NewSequencer(steps...)

	for e.seq.Current() < step && e.seq.Current() < e.seq.Len() {
		e.seq.current++
	}

	return e
}

func (e *Eligibility) Step() int {
	return e.seq.Current()
}

func (e *Eligibility) StepCount() int {
	return e.seq.Len()
}

func (e *Eligibility) Question() Question {
	return EligibilityQuestions[e.seq.Current()-1]
}

func (e *Eligibility) Answers() types.EligibilityAnswers {
	return e.answers
}

// Answer returns the current question's answer.
func (e *Eligibility) Answer() string {
	return e.answer(e.Question().Key)
}

// SetAnswer records the answer to the current question.
func (e *Eligibility) SetAnswer(value string) {
	value = strings.TrimSpace(value)

	switch e.Question().Key {
	case QuestionAge:
		e.answers.Age = value
	case QuestionGender:
		e.answers.Gender = value
	case QuestionCaste:
		e.answers.Caste = value
	case QuestionIncome:
		e.answers.Income = value
	case QuestionState:
		e.answers.State = value
	case QuestionOccupation:
		e.answers.Occupation = value
	}
}

func (e *Eligibility) CanAdvance() bool {
	return e.seq.CanAdvance()
}

// Next advances one question. MoveSubmit on the last question means the
// answers are complete and Filter can be used.
func (e *Eligibility) Next() Move {
	return e.seq.Next()
}

func (e *Eligibility) Back() {
	e.seq.Back()
}

func (e *Eligibility) Filter() types.SchemeFilter {
	return e.answers.Filter()
}

func (e *Eligibility) answer(key string) string {
	switch key {
	case QuestionAge:
		return e.answers.Age
	case QuestionGender:
		return e.answers.Gender
	case QuestionCaste:
		return e.answers.Caste
	case QuestionIncome:
		return e.answers.Income
	case QuestionState:
		return e.answers.State
	case QuestionOccupation:
		return e.answers.Occupation
	}
	return ""
}
