package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/transfer"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

var ErrGeneratorDisabled = errors.New("content generation is not configured")

var systemPrompts = map[models.Platform]string{
	models.PlatformLinkedIn:  "You are a digital marketing expert specialised in LinkedIn.",
	models.PlatformInstagram: "You are a digital marketing expert specialised in Instagram.",
	models.PlatformWordPress: "You are a digital marketing expert specialised in WordPress and SEO. Answer with the article body as HTML.",
	models.PlatformGmail:     "You are an email marketing expert.",
	models.PlatformWhatsApp:  "You are a conversational marketing expert for WhatsApp.",
}

const gmailFormat = `Answer only with a JSON object with the keys "subject", "plain" and "html".`

type GeneratorService interface {
	Generate(ctx context.Context, platform, brief string) (*transfer.GeneratedContent, error)
	Translate(ctx context.Context, content, language, subject string) (*transfer.GeneratedContent, error)
}

type generatorService struct {
	llm llms.Model
}

// NewGeneratorService returns a disabled generator when apiKey is empty.
func NewGeneratorService(apiKey, model string) (GeneratorService, error) {
	if apiKey == "" {
		return &generatorService{}, nil
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return &generatorService{llm: llm}, nil
}

func NewGeneratorServiceWithModel(llm llms.Model) GeneratorService {
	return &generatorService{llm: llm}
}

func (s *generatorService) Generate(ctx context.Context, platform, brief string) (*transfer.GeneratedContent, error) {
	if s.llm == nil {
		return nil, ErrGeneratorDisabled
	}

	p, ok := models.ParsePlatform(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return nil, errors.New("brief cannot be empty")
	}

	system := systemPrompts[p]
	if p == models.PlatformGmail {
		system += " " + gmailFormat
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, brief),
	}
	resp, err := s.llm.GenerateContent(ctx, messages)
	if err != nil {
		slog.Info(err.Error(), "platform", platform)
		return nil, fmt.Errorf("error generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}
	text := resp.Choices[0].Content

	switch p {
	case models.PlatformGmail:
		return parseMail(text)
	case models.PlatformWordPress:
		return &transfer.GeneratedContent{Content: stripHTMLFence(text)}, nil
	default:
		return &transfer.GeneratedContent{Content: strings.TrimSpace(text)}, nil
	}
}

// Translate translates the content and, when present, the subject.
func (s *generatorService) Translate(ctx context.Context, content, language, subject string) (*transfer.GeneratedContent, error) {
	if s.llm == nil {
		return nil, ErrGeneratorDisabled
	}
	if strings.TrimSpace(language) == "" {
		return nil, errors.New("target language cannot be empty")
	}

	out := &transfer.GeneratedContent{}
	translated, err := s.translate(ctx, content, language)
	if err != nil {
		return nil, err
	}
	out.Content = translated

	if subject != "" {
		if out.Subject, err = s.translate(ctx, subject, language); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *generatorService) translate(ctx context.Context, text, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text into %s. Keep its tone, formatting and emojis. Answer only with the translation.\n\n%s",
		language, text,
	)
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error translating content: %w", err)
	}
	return stripQuotes(resp), nil
}

func parseMail(text string) (*transfer.GeneratedContent, error) {
	text = strings.TrimSpace(text)
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		text = text[i : j+1]
	}

	var mail struct {
		Subject string `json:"subject"`
		Plain   string `json:"plain"`
		HTML    string `json:"html"`
	}
	if err := json.Unmarshal([]byte(text), &mail); err != nil {
		return nil, fmt.Errorf("error decoding generated mail: %w", err)
	}
	return &transfer.GeneratedContent{
		Content:     mail.Plain,
		Subject:     mail.Subject,
		ContentHTML: mail.HTML,
	}, nil
}

func stripHTMLFence(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```html") && strings.HasSuffix(t, "```") && len(t) >= len("```html```") {
		return strings.TrimSpace(t[len("```html") : len(t)-len("```")])
	}
	return t
}

func stripQuotes(text string) string {
	t := strings.TrimSpace(text)
	if len(t) >= 2 && strings.HasPrefix(t, `"`) && strings.HasSuffix(t, `"`) {
		return t[1 : len(t)-1]
	}
	return t
}
