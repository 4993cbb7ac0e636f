// Package chat runs the generation agent: the model edits a project's virtual
// file system through tool calls until it has nothing left to do.
package chat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/logging"
	"github.com/jivzik/uigen/internal/metrics"
	"github.com/jivzik/uigen/internal/prompts"
	"github.com/jivzik/uigen/internal/tools"
	"github.com/jivzik/uigen/internal/vfs"
)

const (
	DefaultMaxSteps     = 40
	maxToolCallsPerStep = 50

	rateLimitRetryMaxAttempts = 5
	rateLimitRetryBaseDelay   = 10 * time.Second
	rateLimitRetryMaxDelay    = 4 * time.Minute

	loopDetectionWindow  = 10
	loopDetectionWarning = 3
	loopDetectionStop    = 5
)

// Stop reasons reported in Result.
const (
	StopFinished     = "finished"
	StopStepLimit    = "step_limit"
	StopLoopDetected = "loop_detected"
)

type Provider interface {
	ChatWithTools(ctx context.Context, messages []llm.ChatMessage, tools []llm.Tool) (llm.ChatResponse, error)
}

type Request struct {
	Messages []llm.Message `json:"messages"`
	Files    vfs.Snapshot  `json:"files"`
}

type Result struct {
	Message    llm.Message    `json:"message"`
	Files      vfs.Snapshot   `json:"files"`
	Changes    []tools.Change `json:"changes,omitempty"`
	Steps      int            `json:"steps"`
	StopReason string         `json:"stopReason"`
}

type Agent struct {
	provider   Provider
	providerID string
	modelID    string
	maxSteps   int
	maxTokens  int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sleep      func(ctx context.Context, d time.Duration) error
	newID      func() string
}

type Option func(*Agent)

func WithProviderID(id string) Option {
	return func(a *Agent) { a.providerID = id }
}

func WithModelID(id string) Option {
	return func(a *Agent) { a.modelID = id }
}

func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithMaxTokens caps the output of every model request.
func WithMaxTokens(n int) Option {
	return func(a *Agent) { a.maxTokens = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(a *Agent) {
		if newID != nil {
			a.newID = newID
		}
	}
}

func NewAgent(provider Provider, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		maxSteps: DefaultMaxSteps,
		logger:   logging.Nop(),
		sleep:    sleepWithContext,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) ProviderID() string { return a.providerID }

// Run answers the last user message of req. Tool calls are applied to a copy of
// req.Files; the updated tree is returned with the assistant message.
func (a *Agent) Run(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != llm.RoleUser {
		return Result{}, errinfo.ValidationFailed(errinfo.PhaseChat, "conversation must end with a user message")
	}
	fs, err := vfs.FromSnapshot(req.Files)
	if err != nil {
		return Result{}, errinfo.ValidationFailed(errinfo.PhaseChat, fmt.Sprintf("invalid file system: %v", err))
	}
	handler := tools.NewHandler(fs)
	if a.maxTokens > 0 {
		ctx = llm.WithRequestProfile(ctx, llm.RequestProfile{MaxTokens: a.maxTokens})
	}

	messages := append([]llm.ChatMessage{{
		Role:    llm.RoleSystem,
		Content: prompts.System(fs.Files()),
	}}, llm.ToChatMessages(req.Messages)...)

	assistant := llm.Message{ID: a.newID(), Role: llm.RoleAssistant}
	var text []string
	var loopWindow []string
	stopReason := StopStepLimit
	steps := 0
	totalToolCalls := 0
	start := time.Now()
	a.logger.Info("chat.agent_start", "message_id", assistant.ID, "provider_id", a.providerID,
		"model_id", a.modelID, "history", len(req.Messages), "files", len(req.Files))

loop:
	for step := 0; step < a.maxSteps; step++ {
		a.logger.Info("chat.agent_api_request", "step", step, "messages", len(messages))
		apiStart := time.Now()
		resp, err := a.chatWithRateLimitRetry(ctx, messages, step)
		a.metrics.ProviderRequest(a.providerID, err == nil)
		if err != nil {
			a.logger.Warn("chat.agent_api_error", "step", step, "provider_id", a.providerID,
				"model_id", a.modelID, "error", err.Error())
			return Result{}, mapLLMError(a.providerID, a.modelID, err)
		}
		steps = step + 1
		a.logger.Info("chat.agent_api_response", "step", step, "elapsed_ms", time.Since(apiStart).Milliseconds(),
			"tool_call_count", len(resp.ToolCalls), "finish_reason", resp.FinishReason, "content_length", len(resp.Content))

		if content := strings.TrimSpace(resp.Content); content != "" {
			text = append(text, content)
		}
		if len(resp.ToolCalls) == 0 {
			stopReason = StopFinished
			break
		}

		toolCalls := resp.ToolCalls
		if len(toolCalls) > maxToolCallsPerStep {
			toolCalls = toolCalls[:maxToolCallsPerStep]
		}
		messages = append(messages, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			loopWindow = append(loopWindow, toolCallHash(call))
			if len(loopWindow) > loopDetectionWindow {
				loopWindow = loopWindow[len(loopWindow)-loopDetectionWindow:]
			}
			repeated := false
			switch checkLoopDetection(loopWindow) {
			case "stop":
				a.logger.Warn("chat.agent_loop_hard_stop", "tool", call.Function.Name, "step", step)
				stopReason = StopLoopDetected
				break loop
			case "warn":
				a.logger.Warn("chat.agent_loop_warning", "tool", call.Function.Name, "step", step)
				repeated = true
			}

			toolStart := time.Now()
			result, toolErr := handler.Execute(call)
			if toolErr != nil {
				result = fmt.Sprintf("Error: %s", toolErr.Error())
				a.logger.Warn("chat.tool_error", "tool", call.Function.Name, "error", toolErr.Error())
			}
			a.metrics.ToolCall(call.Function.Name, toolErr == nil)
			a.logger.Info("chat.tool_complete", "tool", call.Function.Name, "tool_call_id", call.ID,
				"elapsed_ms", time.Since(toolStart).Milliseconds(), "result_bytes", len(result))
			totalToolCalls++

			assistant.ToolInvocations = append(assistant.ToolInvocations, llm.ToolInvocation{
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				State:      llm.StateResult,
				Args:       parseArgs(call.Function.Arguments),
				Result:     result,
			})
			modelResult := result
			if repeated {
				modelResult += "\n\n" + loopWarningNote
			}
			messages = append(messages, llm.ChatMessage{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    modelResult,
			})
		}
	}

	if stopReason == StopStepLimit {
		a.logger.Warn("chat.agent_step_limit", "max_steps", a.maxSteps)
	}
	a.metrics.AgentSteps(steps)
	a.logger.Info("chat.agent_complete", "message_id", assistant.ID, "steps", steps, "stop_reason", stopReason,
		"total_tool_calls", totalToolCalls, "total_elapsed_ms", time.Since(start).Milliseconds())

	assistant.Content = strings.Join(text, "\n\n")
	return Result{
		Message:    assistant,
		Files:      fs.Snapshot(),
		Changes:    handler.Changes(),
		Steps:      steps,
		StopReason: stopReason,
	}, nil
}

func (a *Agent) chatWithRateLimitRetry(ctx context.Context, messages []llm.ChatMessage, step int) (llm.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= rateLimitRetryMaxAttempts; attempt++ {
		resp, err := a.provider.ChatWithTools(ctx, messages, tools.Definitions)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, llm.ErrRateLimited) || attempt == rateLimitRetryMaxAttempts {
			return llm.ChatResponse{}, err
		}
		retryAttempt := attempt + 1
		wait := rateLimitBackoffDuration(retryAttempt)
		a.logger.Warn("chat.agent_rate_limited",
			"step", step,
			"retry_attempt", retryAttempt,
			"retry_max", rateLimitRetryMaxAttempts,
			"retry_in_ms", wait.Milliseconds(),
		)
		if err := a.sleep(ctx, wait); err != nil {
			return llm.ChatResponse{}, err
		}
	}
	return llm.ChatResponse{}, lastErr
}

func sleepWithContext(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rateLimitBackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	wait := rateLimitRetryBaseDelay * time.Duration(1<<uint(attempt-1))
	if wait > rateLimitRetryMaxDelay {
		return rateLimitRetryMaxDelay
	}
	return wait
}

// toolCallHash identifies a call by name and canonicalized arguments.
func toolCallHash(call llm.ToolCall) string {
	args := call.Function.Arguments
	var parsed map[string]any
	if err := json.Unmarshal([]byte(args), &parsed); err == nil {
		if canonical, err := json.Marshal(parsed); err == nil {
			args = string(canonical)
		}
	}
	h := sha256.Sum256([]byte(call.Function.Name + ":" + args))
	return hex.EncodeToString(h[:8])
}

// loopWarningNote is appended to the result the model sees once a call repeats.
const loopWarningNote = "Note: you have made this exact tool call several times. Change approach or finish; repeating it again will end the run."

func checkLoopDetection(window []string) string {
	counts := make(map[string]int, len(window))
	for _, h := range window {
		counts[h]++
	}
	action := ""
	for _, count := range counts {
		if count >= loopDetectionStop {
			return "stop"
		}
		if count >= loopDetectionWarning {
			action = "warn"
		}
	}
	return action
}

func parseArgs(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}

// ToolNames lists the tools used in a message, for logging.
func ToolNames(msg llm.Message) []string {
	seen := map[string]bool{}
	var names []string
	for _, inv := range msg.ToolInvocations {
		if !seen[inv.ToolName] {
			seen[inv.ToolName] = true
			names = append(names, inv.ToolName)
		}
	}
	sort.Strings(names)
	return names
}
