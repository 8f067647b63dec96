package types

type EligibilityAnswers struct {
	Age        string `form:"age"`
	Gender     string `form:"gender"`
	Caste      string `form:"caste"`
	Income     string `form:"income"`
	State      string `form:"state"`
	Occupation string `form:"occupation"`
}

// Filter turns completed eligibility answers into the find-schemes filter.
func (a EligibilityAnswers) Filter() SchemeFilter {
	return SchemeFilter{
		Category:   CategoryAll,
		Age:        a.Age,
		Gender:     a.Gender,
		Caste:      a.Caste,
		Income:     a.Income,
		State:      a.State,
		Occupation: a.Occupation,
	}
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message             string     `json:"message"`
	Language            string     `json:"language"`
	ConversationHistory []ChatTurn `json:"conversationHistory,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ChatErrorResponse struct {
	Error string `json:"error"`
}
