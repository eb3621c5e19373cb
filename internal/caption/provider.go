
package caption

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const systemPrompt = `You write alt text for images on web pages. Reply with one plain sentence that
describes what the image shows for a reader who cannot see it. Do not start with "Image of" or
"Picture of". No quotes, no markdown.`

const userPrompt = "Write alt text for this image."

// NewLoader maps a provider name to a Loader. "none" and "" disable
// captioning and return a nil Loader.
func NewLoader(provider, model string) (Loader, error) {
	switch strings.ToLower(provider) {
	case "", "none", "off":
		return nil, nil
	case "claude", "anthropic":
		return func(context.Context) (Model, error) { return NewClaudeModel(model) }, nil
	case "openai", "gpt":
		return func(context.Context) (Model, error) { return NewOpenAIModel(model) }, nil
	default:
		return nil, fmt.Errorf("unknown caption provider: %s (supported: claude, openai, none)", provider)
	}
}

func apiKey(vars ...string) string {
	for _, v := range vars {
		if k := os.Getenv(v); k != "" {
			return k
		}
	}
	return ""
}
