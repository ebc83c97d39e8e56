package services

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"alignstudio/internal/models"
)

const (
	MaxScenarioNameLength = 100
	MaxSystemPromptLength = 10000
	MaxItemContentLength  = 50000
)

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// ValidateScenario checks name, prompt and item limits. It returns nil or a
// *ValidationError listing every problem.
func ValidateScenario(scenario *models.Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	var problems []string

	if strings.TrimSpace(scenario.Name) == "" {
		problems = append(problems, "Scenario name is required")
	}
	if utf8.RuneCountInString(scenario.Name) > MaxScenarioNameLength {
		problems = append(problems, "Scenario name must be less than 100 characters")
	}
	if utf8.RuneCountInString(scenario.SystemPrompt) > MaxSystemPromptLength {
		problems = append(problems, "System prompt is too long (max 10,000 characters)")
	}
	if utf8.RuneCountInString(scenario.SystemPromptB) > MaxSystemPromptLength {
		problems = append(problems, "System prompt B is too long (max 10,000 characters)")
	}

	for i, item := range scenario.InformationItems {
		n := i + 1
		if strings.TrimSpace(item.Title) == "" {
			problems = append(problems, fmt.Sprintf("Information block %d: Title is required", n))
		}
		if strings.TrimSpace(item.Content) == "" {
			problems = append(problems, fmt.Sprintf("Information block %d: Content is required", n))
		}
		if utf8.RuneCountInString(item.Content) > MaxItemContentLength {
			problems = append(problems, fmt.Sprintf("Information block %d: Content is too long (max 50,000 characters)", n))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// ValidateAPIKey applies lightweight format checks. Empty keys are valid:
// the provider is simply not configured.
func ValidateAPIKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	switch models.NormalizeProvider(provider) {
	case models.ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New(`Anthropic API key should start with "sk-ant-"`)
		}
	case models.ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return errors.New(`OpenAI API key should start with "sk-"`)
		}
	case models.ProviderGemini:
		if len(key) < 10 {
			return errors.New("Gemini API key seems too short")
		}
	case models.ProviderOllama:
		u, err := url.Parse(key)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Ollama endpoint must be a valid URL")
		}
	}
	return nil
}

var (
	scriptTagPattern    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	javascriptPattern   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// SanitizeInput strips script tags, javascript: URLs and inline event
// handlers from user-provided text.
func SanitizeInput(input string) string {
	out := scriptTagPattern.ReplaceAllString(input, "")
	out = javascriptPattern.ReplaceAllString(out, "")
	return eventHandlerPattern.ReplaceAllString(out, "")
}
