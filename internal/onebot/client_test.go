package onebot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetGroupMsgHistory_DecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/get_group_msg_history", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, float64(42), payload["group_id"])
		require.Equal(t, true, payload["reverseOrder"])

		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"retcode": 0,
			"data": map[string]any{
				"messages": []map[string]any{
					{
						"message_id": 1001,
						"time":       1700000000,
						"sender":     map[string]any{"user_id": 100, "nickname": "小明"},
						"message":    []map[string]any{{"type": "text", "data": map[string]any{"text": "早"}}},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	msgs, err := c.GetGroupMsgHistory(context.Background(), 42, 0, 200, true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, int64(1001), msgs[0].MessageID)
	require.Equal(t, int64(100), msgs[0].Sender.UserID)
	require.Equal(t, "早", PlainText(msgs[0].Message))
}

func TestCallAction_RetcodeFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "failed", "retcode": 1400, "message": "no such group"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetGroupMemberInfo(context.Background(), 1, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "retcode 1400")
}

func TestCallAction_HTTPFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetStrangerInfo(context.Background(), 2)
	require.Error(t, err)
}

func TestSendGroupText_BuildsTextSegment(t *testing.T) {
	var payload struct {
		GroupID int64     `json:"group_id"`
		Message []Segment `json:"message"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send_group_msg", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "retcode": 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	require.NoError(t, c.SendGroupText(context.Background(), 42, "你好"))
	require.Equal(t, int64(42), payload.GroupID)
	require.Len(t, payload.Message, 1)
	require.Equal(t, "text", payload.Message[0].Type)
	require.Equal(t, "你好", payload.Message[0].Data["text"])
}
