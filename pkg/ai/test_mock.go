package ai

import "context"

// MockGen implements Gen for tests. Responses and errors are consumed in
// call order; once the queues run dry every call returns DefaultResponse.
type MockGen struct {
	ResponseQueue   []string
	ErrorQueue      []error
	DefaultResponse string
	CallCounts      map[string]int
	UsedPrompts     []Prompt
	CapturedArgs    [][]string
	LastAttrs       []Attr
	currentIndex    int
}

// NewMockGen creates a mock generator with empty queues.
func NewMockGen() *MockGen {
	return &MockGen{
		DefaultResponse: "mock response",
		CallCounts:      make(map[string]int),
	}
}

// SetResponses replaces the response queue and rewinds the mock.
func (m *MockGen) SetResponses(responses ...string) {
	m.ResponseQueue = responses
	m.currentIndex = 0
}

// SetErrors replaces the error queue. A nil entry lets the call at that
// position fall through to the response queue.
func (m *MockGen) SetErrors(errs ...error) {
	m.ErrorQueue = errs
}

func (m *MockGen) next() (string, error) {
	idx := m.currentIndex
	m.currentIndex++

	if idx < len(m.ErrorQueue) && m.ErrorQueue[idx] != nil {
		return "", m.ErrorQueue[idx]
	}
	if idx < len(m.ResponseQueue) {
		return m.ResponseQueue[idx], nil
	}
	return m.DefaultResponse, nil
}

// GenerateContent implements Gen.
func (m *MockGen) GenerateContent(ctx context.Context, prompt Prompt, debug bool, args ...string) (string, error) {
	m.CallCounts["GenerateContent"]++
	m.UsedPrompts = append(m.UsedPrompts, prompt)

	argsCopy := make([]string, len(args))
	copy(argsCopy, args)
	m.CapturedArgs = append(m.CapturedArgs, argsCopy)

	return m.next()
}

// GenerateContentAttr implements Gen.
func (m *MockGen) GenerateContentAttr(ctx context.Context, prompt Prompt, debug bool, attrs []Attr) (string, error) {
	m.CallCounts["GenerateContentAttr"]++
	m.UsedPrompts = append(m.UsedPrompts, prompt)

	attrsCopy := make([]Attr, len(attrs))
	copy(attrsCopy, attrs)
	m.LastAttrs = attrsCopy

	args := make([]string, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	m.CapturedArgs = append(m.CapturedArgs, args)

	return m.next()
}

// CountTokens implements Gen with a rough length-based estimate.
func (m *MockGen) CountTokens(ctx context.Context, p Prompt, debug bool, args ...string) (*TokenCount, error) {
	m.CallCounts["CountTokens"]++
	return estimateTokens(p), nil
}

// CountTokensAttr implements Gen with a rough length-based estimate.
func (m *MockGen) CountTokensAttr(ctx context.Context, p Prompt, debug bool, attrs []Attr) (*TokenCount, error) {
	m.CallCounts["CountTokensAttr"]++
	return estimateTokens(p), nil
}

// GetStatus reports the mock as always connected.
func (m *MockGen) GetStatus() *Status {
	return &Status{Connected: true, Backend: "mock", Message: "Mock generator is connected"}
}

// CallCount returns the number of generation calls across both variants.
func (m *MockGen) CallCount() int {
	return m.CallCounts["GenerateContent"] + m.CallCounts["GenerateContentAttr"]
}

// LastArgValue returns the value for key in the most recent call's
// attributes, or the empty string when absent.
func (m *MockGen) LastArgValue(key string) string {
	if len(m.CapturedArgs) == 0 {
		return ""
	}
	args := m.CapturedArgs[len(m.CapturedArgs)-1]
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

func estimateTokens(p Prompt) *TokenCount {
	estimated := int32((len(p.Text) + len(p.Instruction)) / 4)
	if estimated < 1 {
		estimated = 1
	}
	return &TokenCount{
		TotalTokens: estimated,
		InputTokens: estimated,
	}
}
