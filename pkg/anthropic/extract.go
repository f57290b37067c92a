package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

const extractSystemText = "You are a research analyst extracting structured data from text. Return valid JSON matching the requested schema. Use null for fields not found."

const extractPrompt = `%INSTRUCTIONS%

Output JSON schema:
%SCHEMA%

Source text:
%TEXT%

Extract the requested data. Return valid JSON matching the schema above.`

// ExtractStructured runs one text-to-schema extraction call and returns the
// parsed top-level JSON object. The extraction is best-effort: fields the
// model omits are simply absent from the returned map. An unparseable
// response yields an error so callers can classify it.
func ExtractStructured(ctx context.Context, client Client, model string, instructions string, schema json.RawMessage, text string) (map[string]any, error) {
	prompt := strings.NewReplacer(
		"%INSTRUCTIONS%", instructions,
		"%SCHEMA%", string(schema),
		"%TEXT%", text,
	).Replace(extractPrompt)

	resp, err := client.CreateMessage(ctx, MessageRequest{
		Model:     model,
		MaxTokens: 1024,
		System:    extractSystemText,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: extract structured")
	}

	cleaned := CleanJSON(resp.Text())
	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, eris.Wrap(err, "anthropic: parse extraction JSON")
	}
	return out, nil
}

// CleanJSON strips markdown code fences and surrounding prose from a model
// response, keeping the outermost JSON object.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
