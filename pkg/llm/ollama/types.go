package ollama

// Wire types for the /api/chat endpoint.

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string          `json:"model"`
	Message         responseMessage `json:"message"`
	Done            bool            `json:"done"`
	PromptEvalCount int             `json:"prompt_eval_count"`
	EvalCount       int             `json:"eval_count"`
	PromptEvalTime  int64           `json:"prompt_eval_duration"`
	EvalTime        int64           `json:"eval_duration"`
	TotalDuration   int64           `json:"total_duration"`
	LoadDuration    int64           `json:"load_duration"`
	Error           string          `json:"error"`
}

type responseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
