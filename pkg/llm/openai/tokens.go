package openai

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// chatRecord is the role/content view of a chat message used for token
// estimates.
type chatRecord struct {
	Role    string
	Content string
	Name    string
}

// estimateChatTokens counts the prompt tokens a chat request will consume,
// following the counting recipe from the OpenAI cookbook. Models without
// their own encoding fall back to cl100k_base.
func estimateChatTokens(records []chatRecord, model string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, fmt.Errorf("get encoding: %w", err)
		}
	}

	perMessage, perName := messageOverhead(model)

	total := 0
	for _, rec := range records {
		total += perMessage
		if role := strings.TrimSpace(rec.Role); role != "" {
			total += len(enc.Encode(role, nil, nil))
		}
		if name := strings.TrimSpace(rec.Name); name != "" {
			total += len(enc.Encode(name, nil, nil)) + perName
		}
		if content := strings.TrimSpace(rec.Content); content != "" {
			total += len(enc.Encode(content, nil, nil))
		}
	}

	// Every reply is primed with <|start|>assistant.
	return total + 3, nil
}

func messageOverhead(model string) (perMessage, perName int) {
	// The 0301 snapshot counted message framing differently.
	if model == "gpt-3.5-turbo-0301" {
		return 4, -1
	}
	return 3, 1
}
