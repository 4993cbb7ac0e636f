package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/vfs"
)

type scriptedProvider struct {
	mu        sync.Mutex
	responses []llm.ChatResponse
	errs      []error
	requests  [][]llm.ChatMessage
}

func (p *scriptedProvider) ChatWithTools(_ context.Context, messages []llm.ChatMessage, _ []llm.Tool) (llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, append([]llm.ChatMessage(nil), messages...))
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return llm.ChatResponse{}, err
		}
	}
	if len(p.responses) == 0 {
		return llm.ChatResponse{Content: "done", FinishReason: "stop"}, nil
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

func userTurn(content string) Request {
	return Request{Messages: []llm.Message{{ID: "u1", Role: llm.RoleUser, Content: content}}}
}

func toolTurn(id, args string) llm.ChatResponse {
	return llm.ChatResponse{
		ToolCalls: []llm.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: llm.ToolCallFunction{Name: "str_replace_editor", Arguments: args},
		}},
		FinishReason: "tool_calls",
	}
}

func TestMockProviderBuildsCounter(t *testing.T) {
	agent := NewAgent(NewMockProvider(), WithProviderID(MockProviderID), WithMaxSteps(4), WithIDGenerator(func() string { return "a1" }))
	res, err := agent.Run(context.Background(), userTurn("Make a counter"))
	require.NoError(t, err)

	assert.Equal(t, StopFinished, res.StopReason)
	assert.Equal(t, 4, res.Steps)
	assert.Equal(t, "a1", res.Message.ID)
	assert.Equal(t, llm.RoleAssistant, res.Message.Role)
	require.Len(t, res.Message.ToolInvocations, 3)
	for _, inv := range res.Message.ToolInvocations {
		assert.Equal(t, llm.StateResult, inv.State)
		assert.False(t, strings.HasPrefix(inv.Result.(string), "Error:"), inv.Result)
	}
	assert.Equal(t, "create", res.Message.ToolInvocations[0].Args["command"])
	assert.Contains(t, res.Message.Content, "I'll create a counter component")

	counter, ok := res.Files["/components/Counter.jsx"]
	require.True(t, ok)
	assert.Contains(t, counter.Content, "rounded-xl")
	assert.NotContains(t, counter.Content, "rounded-lg")
	assert.Contains(t, res.Files["/App.jsx"].Content, "import Counter from '@/components/Counter'")
	assert.Equal(t, vfs.TypeDirectory, res.Files["/components"].Type)

	var paths []string
	for _, c := range res.Changes {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"/App.jsx", "/components/Counter.jsx"}, paths)
}

func TestMockProviderPicksComponent(t *testing.T) {
	assert.Equal(t, "ContactForm", mockComponentFor("Build a signup FORM").name)
	assert.Equal(t, "Card", mockComponentFor("a pricing card").name)
	assert.Equal(t, "Counter", mockComponentFor("anything else").name)
}

func TestStepLimitReturnsPartialWork(t *testing.T) {
	agent := NewAgent(NewMockProvider(), WithMaxSteps(2))
	res, err := agent.Run(context.Background(), userTurn("Make a card"))
	require.NoError(t, err)
	assert.Equal(t, StopStepLimit, res.StopReason)
	assert.Equal(t, 2, res.Steps)
	assert.Len(t, res.Message.ToolInvocations, 2)
	assert.Contains(t, res.Files, "/components/Card.jsx")
	assert.NotContains(t, res.Files, "/App.jsx")
}

func TestSystemPromptListsExistingFiles(t *testing.T) {
	provider := &scriptedProvider{}
	agent := NewAgent(provider)
	req := userTurn("tweak it")
	req.Files = vfs.Snapshot{"/App.jsx": {Type: vfs.TypeFile, Content: "x"}}
	res, err := agent.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Message.Content)

	first := provider.requests[0]
	require.Equal(t, llm.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, "* /App.jsx")
	assert.Equal(t, "tweak it", first[1].Content)
}

func TestToolErrorsAreFedBack(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.ChatResponse{
		toolTurn("call_1", `{"command":"view","path":"/missing.jsx"}`),
		{Content: "The file does not exist.", FinishReason: "stop"},
	}}
	res, err := NewAgent(provider).Run(context.Background(), userTurn("show me the file"))
	require.NoError(t, err)
	require.Len(t, res.Message.ToolInvocations, 1)
	assert.True(t, strings.HasPrefix(res.Message.ToolInvocations[0].Result.(string), "Error:"))

	second := provider.requests[1]
	last := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.True(t, strings.HasPrefix(last.Content, "Error:"))
}

func TestLoopDetectionStops(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.ChatResponse{
		toolTurn("call_same", `{"command":"view","path":"/"}`),
	}}
	res, err := NewAgent(provider, WithMaxSteps(20)).Run(context.Background(), userTurn("loop"))
	require.NoError(t, err)
	assert.Equal(t, StopLoopDetected, res.StopReason)
	assert.Len(t, res.Message.ToolInvocations, loopDetectionStop-1)
	assert.Equal(t, loopDetectionStop, res.Steps)

	resultAt := func(i int) string {
		req := provider.requests[i]
		return req[len(req)-1].Content
	}
	assert.NotContains(t, resultAt(loopDetectionWarning-1), loopWarningNote)
	assert.Contains(t, resultAt(loopDetectionWarning), loopWarningNote)
	for _, inv := range res.Message.ToolInvocations {
		assert.NotContains(t, inv.Result, loopWarningNote)
	}
}

func TestRateLimitRetries(t *testing.T) {
	var waits []time.Duration
	provider := &scriptedProvider{errs: []error{llm.ErrRateLimited, llm.ErrRateLimited, nil}}
	agent := NewAgent(provider, WithSleep(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}))
	res, err := agent.Run(context.Background(), userTurn("hi"))
	require.NoError(t, err)
	assert.Equal(t, "done", res.Message.Content)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, waits)
}

func TestRateLimitGivesUp(t *testing.T) {
	errs := make([]error, rateLimitRetryMaxAttempts+1)
	for i := range errs {
		errs[i] = llm.ErrRateLimited
	}
	provider := &scriptedProvider{errs: errs}
	agent := NewAgent(provider, WithSleep(func(context.Context, time.Duration) error { return nil }))
	_, err := agent.Run(context.Background(), userTurn("hi"))
	var info *errinfo.ErrorInfo
	require.True(t, errors.As(err, &info))
	assert.Equal(t, errinfo.CodeProviderUnavailable, info.ErrorCode)
	assert.Len(t, provider.requests, rateLimitRetryMaxAttempts+1)
}

func TestProviderErrorsAreMapped(t *testing.T) {
	cases := map[error]string{
		llm.ErrUnauthorized:      errinfo.CodeProviderAuthFailed,
		llm.ErrEgressBlocked:     errinfo.CodeEgressBlocked,
		llm.ErrUnavailable:       errinfo.CodeProviderUnavailable,
		context.Canceled:         errinfo.CodeUserCanceled,
		context.DeadlineExceeded: errinfo.CodeNetworkUnavailable,
	}
	for cause, want := range cases {
		provider := &scriptedProvider{errs: []error{cause}}
		_, err := NewAgent(provider, WithProviderID("anthropic"), WithModelID("claude-haiku-4-5")).Run(context.Background(), userTurn("hi"))
		var info *errinfo.ErrorInfo
		require.True(t, errors.As(err, &info), cause.Error())
		assert.Equal(t, want, info.ErrorCode, cause.Error())
		assert.Equal(t, "anthropic", info.ProviderID)
		assert.Equal(t, "claude-haiku-4-5", info.ModelID)
	}
}

func TestRunRequiresUserTurn(t *testing.T) {
	agent := NewAgent(&scriptedProvider{})
	_, err := agent.Run(context.Background(), Request{})
	var info *errinfo.ErrorInfo
	require.True(t, errors.As(err, &info))
	assert.Equal(t, errinfo.CodeValidationFailed, info.ErrorCode)
}

func TestToolCallHashIgnoresKeyOrder(t *testing.T) {
	a := llm.ToolCall{Function: llm.ToolCallFunction{Name: "x", Arguments: `{"a":1,"b":2}`}}
	b := llm.ToolCall{Function: llm.ToolCallFunction{Name: "x", Arguments: `{"b":2, "a":1}`}}
	assert.Equal(t, toolCallHash(a), toolCallHash(b))
}

func TestRateLimitBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), rateLimitBackoffDuration(0))
	assert.Equal(t, 10*time.Second, rateLimitBackoffDuration(1))
	assert.Equal(t, 80*time.Second, rateLimitBackoffDuration(4))
	assert.Equal(t, rateLimitRetryMaxDelay, rateLimitBackoffDuration(10))
}
