// Package render turns the analysis markdown into a styled card image
// via an external HTML render service. Rasterization stays out of
// process; on any failure the caller falls back to plain text.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/zhalslar/portrayal-go/internal/config"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("portrayal").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { margin: 0; background: #1f2430; font-family: "PingFang SC", "Noto Sans CJK SC", sans-serif; }
  .card { margin: 24px; padding: 32px; border-radius: 16px; background: #fffdf7; color: #2b2b2b; }
  .card h1, .card h2, .card h3 { color: #5a4632; }
  .card blockquote { border-left: 4px solid #d6c7a1; margin-left: 0; padding-left: 12px; color: #6b6b6b; }
  .card code { background: #f0ead8; border-radius: 4px; padding: 1px 4px; }
  .nickname { font-size: 26px; font-weight: 700; margin-bottom: 4px; }
  .footer { margin-top: 24px; font-size: 12px; color: #9a9a9a; text-align: right; }
</style>
</head>
<body>
<div class="card">
  <div class="nickname">{{.Nickname}} 的性格画像</div>
  {{.Body}}
  <div class="footer">生成于 {{.GeneratedAt}}</div>
</div>
</body>
</html>`))

// Renderer posts rendered HTML to the external service and returns the
// image reference it answers with.
type Renderer struct {
	cfg    config.RenderConfig
	client *http.Client
}

// NewRenderer creates a renderer for the configured service.
func NewRenderer(cfg config.RenderConfig) *Renderer {
	return &Renderer{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Render converts analysisText (markdown) to the card HTML and requests
// an image. The returned string is a URL or file reference suitable for
// an image segment.
func (r *Renderer) Render(ctx context.Context, nickname, analysisText string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(analysisText), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var html bytes.Buffer
	err := page.Execute(&html, struct {
		Nickname    string
		Body        template.HTML
		GeneratedAt string
	}{
		Nickname:    nickname,
		Body:        template.HTML(body.String()),
		GeneratedAt: time.Now().Format("2006-01-02 15:04"),
	})
	if err != nil {
		return "", fmt.Errorf("build page: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"html":                html.String(),
		"width":               r.cfg.Width,
		"height":              r.cfg.Height,
		"device_scale_factor": r.cfg.Scale,
		"full_page":           r.cfg.FullPage,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render service: unexpected status code: %d", resp.StatusCode)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("render service: decode response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("render service: empty image reference")
	}
	return result.URL, nil
}
