package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"welfareportal/internal/metrics"
	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	MaxMessageLength = 2000
	MaxHistoryTurns  = 20
	ReferenceLimit   = 25
	DefaultLanguage  = "en"
)

var (
	ErrMessageRequired = errors.New("message is required")
	ErrMessageTooLong  = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	ErrUnavailable     = errors.New("assistant is not configured")
	ErrEmptyReply      = errors.New("assistant returned an empty reply")
)

// Generator produces the assistant's reply from a system prompt, prior turns
// and the new user message.
type Generator interface {
	Generate(ctx context.Context, system string, history []types.ChatTurn, message string) (string, error)
}

type SchemeSource interface {
	ActiveSchemes(ctx context.Context, limit uint64) ([]*types.Scheme, error)
	Scheme(ctx context.Context, id string) (*types.Scheme, error)
}

// Assistant proxies chat messages to the generator with the scheme catalog
// as reference material. It keeps no state between calls.
type Assistant struct {
	logger    logrus.FieldLogger
	schemes   SchemeSource
	generator Generator
}

func NewAssistant(logger logrus.FieldLogger, schemes SchemeSource, generator Generator) *Assistant {
	return &Assistant{logger: logger, schemes: schemes, generator: generator}
}

// IsValidationError reports whether err was caused by the request rather
// than by a dependency.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMessageRequired) || errors.Is(err, ErrMessageTooLong)
}

// Reply answers a general question using up to ReferenceLimit active
// schemes as reference.
func (a *Assistant) Reply(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	resp, err := a.reply(ctx, req, func(ctx context.Context) ([]*types.Scheme, error) {
		return a.schemes.ActiveSchemes(ctx, ReferenceLimit)
	})
	metrics.ChatRequestsTotal.WithLabelValues(chatOutcome(err)).Inc()
	return resp, err
}

// ReplyAboutScheme answers a question about one scheme.
func (a *Assistant) ReplyAboutScheme(ctx context.Context, schemeID string, req types.ChatRequest) (*types.ChatResponse, error) {
	resp, err := a.reply(ctx, req, func(ctx context.Context) ([]*types.Scheme, error) {
		scheme, err := a.schemes.Scheme(ctx, schemeID)
		if err != nil {
			return nil, err
		}
		return []*types.Scheme{scheme}, nil
	})
	metrics.ChatRequestsTotal.WithLabelValues(chatOutcome(err)).Inc()
	return resp, err
}

func (a *Assistant) reply(ctx context.Context, req types.ChatRequest, reference func(context.Context) ([]*types.Scheme, error)) (*types.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrMessageRequired
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	if a.generator == nil {
		return nil, ErrUnavailable
	}

	schemes, err := reference(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference schemes: %w", err)
	}

	system := SystemPrompt(schemes, req.Language)
	history := TrimHistory(req.ConversationHistory)

	reply, err := a.generator.Generate(ctx, system, history, message)
	if err != nil {
		a.logger.WithError(err).Error("chat generation failed")
		return nil, err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, ErrEmptyReply
	}

	return &types.ChatResponse{Reply: reply}, nil
}

// TrimHistory drops turns with an unknown role or no content and keeps the
// most recent MaxHistoryTurns.
func TrimHistory(history []types.ChatTurn) []types.ChatTurn {
	out := make([]types.ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		out = append(out, turn)
	}

	if len(out) > MaxHistoryTurns {
		out = out[len(out)-MaxHistoryTurns:]
	}
	return out
}

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"bn": "Bengali",
	"ta": "Tamil",
	"te": "Telugu",
	"mr": "Marathi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
	"pa": "Punjabi",
}

func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = DefaultLanguage
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// SystemPrompt instructs the model and lists the reference schemes.
func SystemPrompt(schemes []*types.Scheme, language string) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant for a government welfare scheme portal. ")
	b.WriteString("Help citizens understand schemes, eligibility and the documents they need. ")
	b.WriteString("Only use the scheme information below; if something is not covered, say so and suggest contacting the responsible ministry. ")
	fmt.Fprintf(&b, "Reply in %s. Keep answers short and plain.\n\n", LanguageName(language))

	if len(schemes) == 0 {
		b.WriteString("No scheme information is available.\n")
		return b.String()
	}

	b.WriteString("Schemes:\n")
	for _, s := range schemes {
		fmt.Fprintf(&b, "- %s (%s): %s", s.Title, s.Category, s.Description)
		if s.Ministry != nil && *s.Ministry != "" {
			fmt.Fprintf(&b, " Ministry: %s.", *s.Ministry)
		}
		if s.Eligibility != nil && *s.Eligibility != "" {
			fmt.Fprintf(&b, " Eligibility: %s.", *s.Eligibility)
		}
		if s.Benefits != nil && *s.Benefits != "" {
			fmt.Fprintf(&b, " Benefits: %s.", *s.Benefits)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func chatOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidationError(err):
		return "invalid"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	return "error"
}
