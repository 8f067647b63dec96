package wizard

import (
	"testing"

	"welfareportal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibility_WalkAllQuestions(t *testing.T) {
	e := NewEligibility()
	require.Equal(t, 6, e.StepCount())

	answers := []string{"18_35", "female", "obc", "below_1l", "bihar", "farmer"}
	for i, answer := range answers {
		assert.Equal(t, i+1, e.Step())
		assert.False(t, e.CanAdvance())
		assert.Equal(t, MoveBlocked, e.Next())

		e.SetAnswer(answer)
		if i < len(answers)-1 {
			assert.Equal(t, MoveAdvanced, e.Next())
		}
	}

	assert.Equal(t, MoveSubmit, e.Next())
	assert.Equal(t, types.SchemeFilter{
		Category:   types.CategoryAll,
		Age:        "18_35",
		Gender:     "female",
		Caste:      "obc",
		Income:     "below_1l",
		State:      "bihar",
		Occupation: "farmer",
	}, e.Filter())
}

func TestEligibility_BlankAnswerBlocks(t *testing.T) {
	e := NewEligibility()
	e.SetAnswer("   ")

	assert.Equal(t, MoveBlocked, e.Next())
	assert.Empty(t, e.Answers().Age)
}

func TestEligibility_Restore(t *testing.T) {
	answers := types.EligibilityAnswers{Age: "36_60", Gender: "male", Caste: "sc"}

	e := RestoreEligibility(answers, 4)
	assert.Equal(t, 4, e.Step())
	assert.Equal(t, QuestionIncome, e.Question().Key)
	assert.Empty(t, e.Answer())

	e.Back()
	assert.Equal(t, QuestionCaste, e.Question().Key)
	assert.Equal(t, "sc", e.Answer())

	clamped := RestoreEligibility(answers, 99)
	assert.Equal(t, 6, clamped.Step())

	first := RestoreEligibility(answers, 0)
	assert.Equal(t, 1, first.Step())
}

func TestEligibilityQuestions_Order(t *testing.T) {
	keys := make([]string, len(EligibilityQuestions))
	for i, q := range EligibilityQuestions {
		keys[i] = q.Key
		assert.NotEmpty(t, q.Options, q.Key)
	}
	assert.Equal(t, []string{"age", "gender", "caste", "income", "state", "occupation"}, keys)
}
