// Package bot wires the portrayal command to the gateway event stream:
// it parses the command, runs the fetch, analysis and render stages
// strictly in sequence and reports progress and results back into the
// group. Every invocation is independent; no state survives it.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zhalslar/portrayal-go/internal/history"
	"github.com/zhalslar/portrayal-go/internal/logger"
	"github.com/zhalslar/portrayal-go/internal/onebot"
	"github.com/zhalslar/portrayal-go/internal/profile"
)

const maxRoundsCeiling = 200

// Fetcher gathers the target user's context turns.
type Fetcher interface {
	Fetch(ctx context.Context, groupID, targetUserID int64, maxRounds int) ([]history.Turn, int)
}

// Resolver builds the target user's profile fields.
type Resolver interface {
	Resolve(ctx context.Context, groupID, userID int64) profile.Info
}

// Analyzer produces the portrayal text, or reports that it could not.
type Analyzer interface {
	Analyze(ctx context.Context, info profile.Info, turns []history.Turn) (string, bool)
}

// Renderer turns the portrayal text into an image reference.
type Renderer interface {
	Render(ctx context.Context, nickname, analysisText string) (string, error)
}

// Sender delivers replies through the gateway.
type Sender interface {
	SendGroupText(ctx context.Context, groupID int64, text string) error
	SendGroupImage(ctx context.Context, groupID int64, file string) error
	SendPrivateText(ctx context.Context, userID int64, text string) error
}

// Handler handles incoming gateway events.
type Handler struct {
	Command       string
	DefaultRounds int

	Fetcher  Fetcher
	Resolver Resolver
	Analyzer Analyzer
	Renderer Renderer
	Sender   Sender
}

// HandleEvent runs one command invocation end to end. Nothing escapes:
// panics and errors all degrade to a plain-text reply.
func (h *Handler) HandleEvent(ctx context.Context, ev onebot.Event) {
	text := strings.TrimSpace(onebot.PlainText(ev.Message))
	if !h.isCommand(text) {
		return
	}

	if ev.MessageType != "group" {
		// Group history is the whole point; there is nothing to scan in
		// a direct message.
		_ = h.Sender.SendPrivateText(ctx, ev.UserID, "❌ 该命令仅支持群聊使用（需要读取群聊历史消息）。")
		return
	}

	log := logger.With("invocation_id", uuid.NewString(), "group_id", ev.GroupID, "sender_id", ev.UserID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("portrayal invocation panicked", "panic", r)
			_ = h.Sender.SendGroupText(ctx, ev.GroupID, fmt.Sprintf("分析中断: %v", r))
		}
	}()

	targetID, ok := onebot.AtTarget(ev.Message, ev.SelfID)
	if !ok {
		targetID = ev.UserID
	}
	maxRounds := h.parseRounds(text)
	log.Info("portrayal requested", "target_id", targetID, "max_rounds", maxRounds)

	info := h.Resolver.Resolve(ctx, ev.GroupID, targetID)
	nickname := info.Nickname()

	h.reply(ctx, log, ev.GroupID,
		fmt.Sprintf("🚬 吐出一口烟圈，漫不经心地回溯着 %s 留下的过往痕迹...", nickname))

	turns, rounds := h.Fetcher.Fetch(ctx, ev.GroupID, targetID, maxRounds)
	if len(turns) == 0 {
		h.reply(ctx, log, ev.GroupID, "⚠️ 烟灰缸都满了，也没翻到这家伙的一句话。（未找到有效发言记录）")
		return
	}

	h.reply(ctx, log, ev.GroupID,
		fmt.Sprintf("⚖️ 勉强扫了一眼 %d 条消息 (基于 %d 轮扫描)... 罗莎正在透过屏幕，给这个家伙的性格定性...", len(turns), rounds))

	analysis, ok := h.Analyzer.Analyze(ctx, info, turns)
	if !ok {
		h.reply(ctx, log, ev.GroupID, "❌ 啧，灵感枯竭了。（LLM 响应为空）")
		return
	}

	image, err := h.Renderer.Render(ctx, nickname, analysis)
	if err != nil {
		// Degraded but still useful: hand over the raw text.
		log.Warn("portrayal render failed, falling back to text", "error", err)
		h.reply(ctx, log, ev.GroupID, analysis)
		return
	}
	if err := h.Sender.SendGroupImage(ctx, ev.GroupID, image); err != nil {
		log.Warn("image reply failed, falling back to text", "error", err)
		h.reply(ctx, log, ev.GroupID, analysis)
		return
	}
	log.Info("portrayal delivered", "turns", len(turns), "rounds", rounds)
}

// isCommand matches the exact command token: the bare command, or the
// command followed by arguments. A longer word that merely starts with
// it ("画像册") is ordinary chat.
func (h *Handler) isCommand(text string) bool {
	if !strings.HasPrefix(text, h.Command) {
		return false
	}
	rest := text[len(h.Command):]
	return rest == "" || strings.HasPrefix(rest, " ")
}

// parseRounds reads an optional trailing integer as the rounds override,
// clamped to [0, 200].
func (h *Handler) parseRounds(text string) int {
	rounds := h.DefaultRounds
	fields := strings.Fields(text)
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			rounds = n
		}
	}
	if rounds < 0 {
		rounds = 0
	}
	if rounds > maxRoundsCeiling {
		rounds = maxRoundsCeiling
	}
	return rounds
}

func (h *Handler) reply(ctx context.Context, log *slog.Logger, groupID int64, text string) {
	if err := h.Sender.SendGroupText(ctx, groupID, text); err != nil {
		log.Warn("group reply failed", "error", err)
	}
}
