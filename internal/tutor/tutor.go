package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"labassistant/internal/domain"
	"labassistant/internal/infra"
	"labassistant/internal/providers/chat"
)

// Level selects the school stage an explanation is pitched at.
type Level string

const (
	LevelJunior Level = "junior"
	LevelSenior Level = "senior"
)

// ParseLevel accepts "junior" or "senior" in any case; empty means junior.
func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(LevelJunior):
		return LevelJunior, nil
	case string(LevelSenior):
		return LevelSenior, nil
	}
	return "", fmt.Errorf("tutor: unknown level %q: %w", raw, domain.ErrInvalidInput)
}

func (l Level) stageName() string {
	if l == LevelSenior {
		return "senior high school (高中)"
	}
	return "junior high school (初中)"
}

// Completer is the chat capability the tutor needs.
type Completer interface {
	Complete(ctx context.Context, credential string, req chat.Request) (string, error)
}

// Balance is the result of balancing an equation. Raw always holds the model
// reply; the structured fields are filled when the reply is valid JSON.
type Balance struct {
	BalancedEquation string   `json:"balanced_equation,omitempty"`
	Steps            []string `json:"steps,omitempty"`
	Raw              string   `json:"raw"`
}

// Service answers single-turn teaching questions.
type Service struct {
	text   Completer
	logger *infra.Logger
}

func NewService(text Completer, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{text: text, logger: logger}
}

// ExplainReaction explains the properties, conditions and uses of a reaction.
func (s *Service) ExplainReaction(ctx context.Context, credential, reaction string, level Level) (string, error) {
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return "", fmt.Errorf("tutor: reaction is required: %w", domain.ErrInvalidInput)
	}
	s.logger.Info().Str("level", string(level)).Str("reaction", reaction).Msg("tutor: explaining reaction")
	return s.text.Complete(ctx, credential, chat.Request{
		System: fmt.Sprintf(explainInstruction, level.stageName()),
		Messages: []chat.Message{
			chat.UserText("请详细讲解以下化学反应的性质、条件和应用意义：" + reaction),
		},
	})
}

// BalanceEquation balances a chemical equation and lists the steps taken.
func (s *Service) BalanceEquation(ctx context.Context, credential, equation string) (*Balance, error) {
	equation = strings.TrimSpace(equation)
	if equation == "" {
		return nil, fmt.Errorf("tutor: equation is required: %w", domain.ErrInvalidInput)
	}
	s.logger.Info().Str("equation", equation).Msg("tutor: balancing equation")
	reply, err := s.text.Complete(ctx, credential, chat.Request{
		System:   balanceInstruction,
		Messages: []chat.Message{chat.UserText("请配平以下方程式：" + equation)},
	})
	if err != nil {
		return nil, err
	}
	result := &Balance{Raw: reply}
	parsed, err := parseModelPayload[balancePayload](reply)
	if err != nil {
		s.logger.Debug().Err(err).Msg("tutor: balance reply is not JSON, returning raw text")
		return result, nil
	}
	result.BalancedEquation = strings.TrimSpace(parsed.BalancedEquation)
	result.Steps = normalizeSteps(parsed.Steps)
	return result, nil
}

// RecognizeMaterial identifies a lab material in the image at imageURL. The
// model is asked for JSON; a reply that is not JSON is returned as a string.
func (s *Service) RecognizeMaterial(ctx context.Context, credential, imageURL string) (json.RawMessage, error) {
	imageURL = strings.TrimSpace(imageURL)
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("tutor: image url must be an absolute http(s) url: %w", domain.ErrInvalidInput)
	}
	s.logger.Info().Str("image_url", imageURL).Msg("tutor: recognizing material")
	reply, err := s.text.Complete(ctx, credential, chat.Request{
		System: recognizeInstruction,
		Messages: []chat.Message{{
			Role:     chat.RoleUser,
			Text:     "请根据图片识别实验物质，并按要求返回JSON。",
			ImageURL: imageURL,
		}},
	})
	if err != nil {
		return nil, err
	}
	if fragment := extractJSONFragment(reply); fragment != "" && json.Valid([]byte(fragment)) {
		return json.RawMessage(fragment), nil
	}
	encoded, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("tutor: encode reply: %w", err)
	}
	return encoded, nil
}
