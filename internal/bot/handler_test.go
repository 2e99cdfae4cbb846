package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhalslar/portrayal-go/internal/history"
	"github.com/zhalslar/portrayal-go/internal/onebot"
	"github.com/zhalslar/portrayal-go/internal/profile"
)

type mockDeps struct {
	fetchTurns  []history.Turn
	fetchRounds int
	gotRounds   int
	gotTarget   int64

	analysis   string
	analysisOK bool

	imageRef  string
	renderErr error

	texts    []string
	images   []string
	privates []string
	sendErr  error
}

func (m *mockDeps) Fetch(ctx context.Context, groupID, targetUserID int64, maxRounds int) ([]history.Turn, int) {
	m.gotTarget = targetUserID
	m.gotRounds = maxRounds
	return m.fetchTurns, m.fetchRounds
}

func (m *mockDeps) Resolve(ctx context.Context, groupID, userID int64) profile.Info {
	return profile.Info{"nickname": "小明", "gender": "男", "summary": "身份 群员"}
}

func (m *mockDeps) Analyze(ctx context.Context, info profile.Info, turns []history.Turn) (string, bool) {
	return m.analysis, m.analysisOK
}

func (m *mockDeps) Render(ctx context.Context, nickname, analysisText string) (string, error) {
	return m.imageRef, m.renderErr
}

func (m *mockDeps) SendGroupText(ctx context.Context, groupID int64, text string) error {
	m.texts = append(m.texts, text)
	return m.sendErr
}

func (m *mockDeps) SendGroupImage(ctx context.Context, groupID int64, file string) error {
	m.images = append(m.images, file)
	return m.sendErr
}

func (m *mockDeps) SendPrivateText(ctx context.Context, userID int64, text string) error {
	m.privates = append(m.privates, text)
	return nil
}

func newHandler(m *mockDeps) *Handler {
	return &Handler{
		Command:       "画像",
		DefaultRounds: 10,
		Fetcher:       m,
		Resolver:      m,
		Analyzer:      m,
		Renderer:      m,
		Sender:        m,
	}
}

func groupEvent(segments ...onebot.Segment) onebot.Event {
	return onebot.Event{
		PostType:    "message",
		MessageType: "group",
		SelfID:      1,
		GroupID:     42,
		UserID:      100,
		Message:     segments,
	}
}

func TestHandleEvent_IgnoresUnrelatedMessages(t *testing.T) {
	m := &mockDeps{}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("今天吃什么")))
	require.Empty(t, m.texts)
	require.Empty(t, m.images)
}

func TestHandleEvent_IgnoresLongerWordsSharingThePrefix(t *testing.T) {
	m := &mockDeps{}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像册看完了")))
	require.Empty(t, m.texts)
	require.Empty(t, m.images)
	require.Empty(t, m.privates)
}

func TestHandleEvent_RejectsPrivateChat(t *testing.T) {
	m := &mockDeps{}
	ev := onebot.Event{PostType: "message", MessageType: "private", UserID: 100, Message: []onebot.Segment{onebot.Text("画像")}}
	newHandler(m).HandleEvent(context.Background(), ev)
	require.Len(t, m.privates, 1)
	require.Contains(t, m.privates[0], "仅支持群聊")
	require.Empty(t, m.texts)
}

func TestHandleEvent_HappyPathSendsImage(t *testing.T) {
	m := &mockDeps{
		fetchTurns:  []history.Turn{{Role: "user", Content: "哈哈"}, {Role: "user", Content: "嗯嗯"}},
		fetchRounds: 2,
		analysis:    "## 画像\n外向。",
		analysisOK:  true,
		imageRef:    "http://render/abc.png",
	}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像 "), onebot.At(200)))

	require.Equal(t, int64(200), m.gotTarget)
	require.Equal(t, 10, m.gotRounds)
	require.Equal(t, []string{"http://render/abc.png"}, m.images)
	require.Len(t, m.texts, 2) // two progress notices, result went out as image
	require.Contains(t, m.texts[0], "小明")
	require.Contains(t, m.texts[1], "2 条消息")
}

func TestHandleEvent_TargetDefaultsToSender(t *testing.T) {
	m := &mockDeps{fetchTurns: nil}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像")))
	require.Equal(t, int64(100), m.gotTarget)
}

func TestHandleEvent_SelfMentionIsNotATarget(t *testing.T) {
	m := &mockDeps{}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像"), onebot.At(1)))
	require.Equal(t, int64(100), m.gotTarget)
}

func TestHandleEvent_RoundsOverrideAndClamp(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"画像 50", 50},
		{"画像 0", 0},
		{"画像 10000", 200},
		{"画像 -5", 0},
		{"画像 abc", 10},
	}
	for _, tc := range cases {
		m := &mockDeps{}
		newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text(tc.text)))
		require.Equal(t, tc.want, m.gotRounds, "text=%q", tc.text)
	}
}

func TestHandleEvent_NoTurnsReportsAndStops(t *testing.T) {
	m := &mockDeps{fetchTurns: nil, fetchRounds: 3}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像")))
	require.Len(t, m.texts, 2)
	require.Contains(t, m.texts[1], "未找到有效发言记录")
	require.Empty(t, m.images)
}

func TestHandleEvent_AnalysisExhaustedReportsNoResult(t *testing.T) {
	m := &mockDeps{
		fetchTurns:  []history.Turn{{Role: "user", Content: "x"}},
		fetchRounds: 1,
		analysisOK:  false,
	}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像")))
	require.Contains(t, m.texts[len(m.texts)-1], "LLM 响应为空")
	require.Empty(t, m.images)
}

func TestHandleEvent_RenderFailureFallsBackToText(t *testing.T) {
	m := &mockDeps{
		fetchTurns:  []history.Turn{{Role: "user", Content: "x"}},
		fetchRounds: 1,
		analysis:    "纯文本画像",
		analysisOK:  true,
		renderErr:   errors.New("renderer down"),
	}
	newHandler(m).HandleEvent(context.Background(), groupEvent(onebot.Text("画像")))
	require.Empty(t, m.images)
	require.Equal(t, "纯文本画像", m.texts[len(m.texts)-1])
}

type panickyAnalyzer struct{ mockDeps }

func (p *panickyAnalyzer) Analyze(ctx context.Context, info profile.Info, turns []history.Turn) (string, bool) {
	panic("provider blew up")
}

func TestHandleEvent_PanicBecomesInterruptedNotice(t *testing.T) {
	m := &panickyAnalyzer{mockDeps{
		fetchTurns:  []history.Turn{{Role: "user", Content: "x"}},
		fetchRounds: 1,
	}}
	h := newHandler(&m.mockDeps)
	h.Analyzer = m
	h.HandleEvent(context.Background(), groupEvent(onebot.Text("画像")))
	require.Contains(t, m.texts[len(m.texts)-1], "分析中断")
}
