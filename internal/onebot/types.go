// Package onebot is a minimal OneBot v11 client: typed wire models, an
// HTTP action client and a forward-WebSocket event stream. Only the
// actions and event shapes this bot consumes are modelled.
package onebot

import "encoding/json"

// Segment is one typed content part of a message.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Sender identifies the author of a message or event.
type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
}

// Message is one historical group message as returned by
// get_group_msg_history. MessageID doubles as the pagination cursor.
type Message struct {
	MessageID int64     `json:"message_id"`
	Sender    Sender    `json:"sender"`
	Message   []Segment `json:"message"`
	Time      int64     `json:"time"`
}

// GroupMemberInfo is the group-scoped member record.
type GroupMemberInfo struct {
	UserID       int64  `json:"user_id"`
	Nickname     string `json:"nickname"`
	Card         string `json:"card"`
	Sex          string `json:"sex"`
	Age          int    `json:"age"`
	Level        string `json:"level"`
	Role         string `json:"role"`
	Title        string `json:"title"`
	JoinTime     int64  `json:"join_time"`
	LastSentTime int64  `json:"last_sent_time"`
}

// StrangerInfo is the global user record, available without group scope.
type StrangerInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Sex      string `json:"sex"`
	Age      int    `json:"age"`
	Level    int    `json:"level"`
}

// Event is an incoming gateway event. Non-message events carry only the
// post_type / meta fields and are skipped by the stream.
type Event struct {
	PostType    string    `json:"post_type"`
	MessageType string    `json:"message_type"`
	SelfID      int64     `json:"self_id"`
	GroupID     int64     `json:"group_id"`
	UserID      int64     `json:"user_id"`
	MessageID   int64     `json:"message_id"`
	Message     []Segment `json:"message"`
	RawMessage  string    `json:"raw_message"`
	Sender      Sender    `json:"sender"`
	Time        int64     `json:"time"`
}

// apiResponse is the OneBot HTTP envelope around action results.
type apiResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
