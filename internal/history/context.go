// Package history fetches a group member's historical messages through
// the gateway's paged history action and normalizes them into context
// turns ready for submission to the language model. Nothing is persisted;
// all state lives for one fetch loop.
package history

import (
	"strings"
	"time"

	"github.com/zhalslar/portrayal-go/internal/onebot"
)

// Turn is one normalized message attributed to the target user.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildTurns filters one page of raw messages down to the target user's
// text and emits them as user turns in page order. Messages without any
// text content (image-only, mention-only) are dropped. When timestamps
// is set, each turn is prefixed with the send time.
func BuildTurns(page []onebot.Message, targetUserID int64, timestamps bool) []Turn {
	turns := make([]Turn, 0, len(page))
	for _, msg := range page {
		if msg.Sender.UserID != targetUserID {
			continue
		}
		text := strings.TrimSpace(onebot.PlainText(msg.Message))
		if text == "" {
			continue
		}
		if timestamps && msg.Time > 0 {
			text = time.Unix(msg.Time, 0).Format("[2006-01-02 15:04] ") + text
		}
		turns = append(turns, Turn{Role: "user", Content: text})
	}
	return turns
}
