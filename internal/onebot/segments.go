package onebot

import (
	"strconv"
	"strings"
)

// Text builds a text segment.
func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]any{"text": text}}
}

// Image builds an image segment from a URL or file reference.
func Image(file string) Segment {
	return Segment{Type: "image", Data: map[string]any{"file": file}}
}

// At builds a mention segment.
func At(userID int64) Segment {
	return Segment{Type: "at", Data: map[string]any{"qq": strconv.FormatInt(userID, 10)}}
}

// PlainText concatenates every text segment in order.
func PlainText(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Type != "text" {
			continue
		}
		if text, ok := seg.Data["text"].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

// AtTarget returns the first mentioned user that is not the bot itself.
// The qq field arrives as a string or a number depending on the gateway.
func AtTarget(segments []Segment, selfID int64) (int64, bool) {
	for _, seg := range segments {
		if seg.Type != "at" {
			continue
		}
		id, ok := segmentUserID(seg)
		if !ok || id == selfID {
			continue
		}
		return id, true
	}
	return 0, false
}

func segmentUserID(seg Segment) (int64, bool) {
	switch v := seg.Data["qq"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
