// Package profile builds the prompt-ready field mapping for a group
// member from two independent gateway lookups. Either lookup may fail;
// failure of one degrades to the other, failure of both degrades to
// localized placeholders, never to an error.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zhalslar/portrayal-go/internal/logger"
	"github.com/zhalslar/portrayal-go/internal/onebot"
)

const (
	Unknown         = "未知"
	None            = "无"
	DefaultNickname = "群友"
)

var roleLabels = map[string]string{
	"owner":  "群主",
	"admin":  "管理员",
	"member": "群员",
}

// Info maps named profile fields to display strings. Every key the
// system prompt template may reference is always present.
type Info map[string]string

// Nickname returns the resolved display name.
func (i Info) Nickname() string { return i["nickname"] }

// API is the pair of gateway lookups the resolver consumes.
type API interface {
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (*onebot.GroupMemberInfo, error)
	GetStrangerInfo(ctx context.Context, userID int64) (*onebot.StrangerInfo, error)
}

// Resolver merges group-scoped and global user records.
type Resolver struct {
	API API
}

// Resolve fetches both records and merges them, group-scoped fields
// winning. Absent or zero-valued fields render as localized sentinels so
// the template never interpolates a bare 0 or empty string.
func (r *Resolver) Resolve(ctx context.Context, groupID, userID int64) Info {
	member, err := r.API.GetGroupMemberInfo(ctx, groupID, userID)
	if err != nil {
		logger.L.Warn("group member info lookup failed", "user_id", userID, "error", err)
		member = &onebot.GroupMemberInfo{}
	}
	stranger, err := r.API.GetStrangerInfo(ctx, userID)
	if err != nil {
		logger.L.Warn("stranger info lookup failed", "user_id", userID, "error", err)
		stranger = &onebot.StrangerInfo{}
	}

	info := Info{
		"nickname":  firstNonEmpty(member.Card, member.Nickname, stranger.Nickname, DefaultNickname),
		"gender":    genderLabel(firstNonEmpty(member.Sex, stranger.Sex)),
		"age":       Unknown,
		"level":     Unknown,
		"role":      roleLabel(member.Role),
		"title":     firstNonEmpty(member.Title, None),
		"join_time": Unknown,
		"last_sent": Unknown,
	}

	if age := firstPositive(member.Age, stranger.Age); age > 0 {
		info["age"] = fmt.Sprintf("%d岁", age)
	}
	if member.Level != "" && member.Level != "0" {
		info["level"] = member.Level
	} else if stranger.Level > 0 {
		info["level"] = fmt.Sprintf("%d", stranger.Level)
	}
	if member.JoinTime > 0 {
		info["join_time"] = time.Unix(member.JoinTime, 0).Format("2006-01-02")
	}
	if member.LastSentTime > 0 {
		info["last_sent"] = time.Unix(member.LastSentTime, 0).Format("2006-01-02")
	}

	info["summary"] = summarize(info)
	return info
}

// summarize pipe-joins whichever descriptive fields are actually known,
// for single-placeholder template substitution.
func summarize(info Info) string {
	parts := make([]string, 0, 5)
	if v := info["age"]; v != Unknown {
		parts = append(parts, "年龄 "+v)
	}
	if v := info["level"]; v != Unknown {
		parts = append(parts, "等级 "+v)
	}
	if v := info["role"]; v != Unknown {
		parts = append(parts, "身份 "+v)
	}
	if v := info["title"]; v != None {
		parts = append(parts, "头衔 "+v)
	}
	if v := info["join_time"]; v != Unknown {
		parts = append(parts, "入群 "+v)
	}
	if len(parts) == 0 {
		return Unknown
	}
	return strings.Join(parts, " | ")
}

func roleLabel(code string) string {
	if code == "" {
		return Unknown
	}
	if label, ok := roleLabels[code]; ok {
		return label
	}
	return code
}

func genderLabel(sex string) string {
	switch sex {
	case "male":
		return "男"
	case "female":
		return "女"
	default:
		return Unknown
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
