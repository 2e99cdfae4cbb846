// Package analyzer asks the language model for a personality portrayal
// and validates the answer. A completion is only accepted when it is
// non-empty and does not look like a disguised upstream failure;
// everything else is retried on a fixed delay until the attempt budget
// runs out. The fetch side uses exponential backoff; this side
// deliberately does not.
package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/zhalslar/portrayal-go/internal/history"
	"github.com/zhalslar/portrayal-go/internal/llm"
	"github.com/zhalslar/portrayal-go/internal/logger"
	"github.com/zhalslar/portrayal-go/internal/pattern"
	"github.com/zhalslar/portrayal-go/internal/profile"
)

// FSM States
type FSMState stateless.State

var (
	StateReadyToCallLLM FSMState = "ReadyToCallLLM"
	StateDone           FSMState = "Done"  // Terminal: accepted completion
	StateError          FSMState = "Error" // Terminal: attempts exhausted
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerAnalyze           FSMTrigger = "Analyze" // initial fire; reentry invokes OnEntry
	TriggerResponseAccepted  FSMTrigger = "ResponseAccepted"
	TriggerResponseRejected  FSMTrigger = "ResponseRejected" // empty, disguised failure or transport error
	TriggerAttemptsExhausted FSMTrigger = "AttemptsExhausted"
)

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// Analyzer drives the bounded retry loop around the LLM call.
type Analyzer struct {
	Registry           *llm.Registry
	SpecificProviderID string
	PromptTemplate     string
	MaxRetries         int
	RetryDelay         time.Duration

	// sleep is swappable in tests; nil means real context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) bool
}

// Analyze runs attempts until a completion is accepted or the budget is
// exhausted. The second return is false when no usable text was produced.
func (a *Analyzer) Analyze(ctx context.Context, info profile.Info, turns []history.Turn) (string, bool) {
	provider, err := a.Registry.Get(a.SpecificProviderID)
	if err != nil {
		logger.L.Error("llm provider resolution failed", "provider_id", a.SpecificProviderID, "error", err)
		return "", false
	}

	maxRetries := a.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	sleep := a.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	messages := a.buildMessages(info, turns)

	var (
		attempt int
		result  string
	)

	fsm := stateless.NewStateMachine(StateReadyToCallLLM)

	fsm.Configure(StateReadyToCallLLM).
		PermitReentry(TriggerAnalyze). // ensures OnEntry is called by the initial Fire
		PermitReentry(TriggerResponseRejected).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if attempt >= maxRetries {
				return fsm.FireCtx(ctx, TriggerAttemptsExhausted)
			}
			attempt++

			resp, err := provider.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    provider.Model,
				Messages: messages,
			})
			text := ""
			if err == nil && len(resp.Choices) > 0 {
				text = strings.TrimSpace(resp.Choices[0].Message.Content)
			}

			switch {
			case err != nil:
				logger.L.Warn("llm call failed", "attempt", attempt, "error", err)
			case text == "":
				logger.L.Warn("llm returned empty completion", "attempt", attempt)
			case pattern.LooksLikeError(text):
				logger.L.Warn("llm returned disguised failure", "attempt", attempt, "text", text)
			default:
				result = text
				return fsm.FireCtx(ctx, TriggerResponseAccepted)
			}

			if attempt < maxRetries {
				sleep(ctx, a.RetryDelay)
			}
			return fsm.FireCtx(ctx, TriggerResponseRejected)
		}).
		Permit(TriggerResponseAccepted, StateDone).
		Permit(TriggerAttemptsExhausted, StateError)

	fsm.Configure(StateDone)
	fsm.Configure(StateError)

	if err := fsm.FireCtx(ctx, TriggerAnalyze); err != nil {
		logger.L.Error("analyzer state machine failed", "error", err)
		return "", false
	}

	state, err := fsm.State(ctx)
	if err != nil || state != StateDone {
		return "", false
	}
	return result, true
}

// buildMessages formats the system prompt from the profile fields and
// appends the context turns plus the fixed analysis instruction.
func (a *Analyzer) buildMessages(info profile.Info, turns []history.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.buildSystemPrompt(info),
	})
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("这是 %s 的聊天记录，请根据 System Prompt 进行分析。", info.Nickname()),
	})
	return messages
}

// buildSystemPrompt substitutes every known profile field into the
// template. A template referencing a field the profile does not carry
// falls back to a minimal prompt instead of aborting the attempt.
func (a *Analyzer) buildSystemPrompt(info profile.Info) string {
	pairs := make([]string, 0, len(info)*2)
	for key, value := range info {
		pairs = append(pairs, "{"+key+"}", value)
	}
	prompt := strings.NewReplacer(pairs...).Replace(a.PromptTemplate)

	if leftover := placeholderPattern.FindString(prompt); leftover != "" {
		logger.L.Warn("prompt template references unknown field, using fallback prompt", "placeholder", leftover)
		return fmt.Sprintf("你是一位性格分析师。请根据聊天记录分析群友「%s」的性格特点。已知资料：%s。",
			info.Nickname(), info["summary"])
	}
	return prompt
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
