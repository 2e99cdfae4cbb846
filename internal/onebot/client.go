package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls OneBot v11 actions over the gateway's HTTP API.
type Client struct {
	apiBase     string
	accessToken string
	client      *http.Client
}

// NewClient creates a new OneBot HTTP client.
func NewClient(apiBase, accessToken string) *Client {
	return &Client{
		apiBase:     strings.TrimRight(apiBase, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// callAction POSTs one action payload and decodes the envelope's data
// field into out. A non-zero retcode is an error.
func (c *Client) callAction(ctx context.Context, action string, payload any, out any) error {
	url := fmt.Sprintf("%s/%s", c.apiBase, action)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code: %d", action, resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	if envelope.Retcode != 0 {
		return fmt.Errorf("%s: retcode %d: %s", action, envelope.Retcode, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", action, err)
		}
	}
	return nil
}

// GetGroupMsgHistory fetches one page of group history. messageSeq 0
// requests the newest page; reverseOrder pages backward from there.
func (c *Client) GetGroupMsgHistory(ctx context.Context, groupID, messageSeq int64, count int, reverseOrder bool) ([]Message, error) {
	payload := map[string]any{
		"group_id":     groupID,
		"message_seq":  messageSeq,
		"count":        count,
		"reverseOrder": reverseOrder,
	}
	var data struct {
		Messages []Message `json:"messages"`
	}
	if err := c.callAction(ctx, "get_group_msg_history", payload, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// GetGroupMemberInfo fetches the group-scoped record of one member.
func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64) (*GroupMemberInfo, error) {
	payload := map[string]any{
		"group_id": groupID,
		"user_id":  userID,
		"no_cache": true,
	}
	var info GroupMemberInfo
	if err := c.callAction(ctx, "get_group_member_info", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetStrangerInfo fetches the global record of a user.
func (c *Client) GetStrangerInfo(ctx context.Context, userID int64) (*StrangerInfo, error) {
	payload := map[string]any{"user_id": userID}
	var info StrangerInfo
	if err := c.callAction(ctx, "get_stranger_info", payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendGroupMsg sends a segmented message to a group.
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, message []Segment) error {
	payload := map[string]any{
		"group_id": groupID,
		"message":  message,
	}
	return c.callAction(ctx, "send_group_msg", payload, nil)
}

// SendGroupText sends a plain-text message to a group.
func (c *Client) SendGroupText(ctx context.Context, groupID int64, text string) error {
	return c.SendGroupMsg(ctx, groupID, []Segment{Text(text)})
}

// SendGroupImage sends an image (by URL or file reference) to a group.
func (c *Client) SendGroupImage(ctx context.Context, groupID int64, file string) error {
	return c.SendGroupMsg(ctx, groupID, []Segment{Image(file)})
}

// SendPrivateText sends a plain-text direct message.
func (c *Client) SendPrivateText(ctx context.Context, userID int64, text string) error {
	payload := map[string]any{
		"user_id": userID,
		"message": []Segment{Text(text)},
	}
	return c.callAction(ctx, "send_private_msg", payload, nil)
}
