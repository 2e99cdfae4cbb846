package pattern

import "testing"

func TestLooksLikeError_Signatures(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \n", false},
		{"http 503", "Error code: 503 - upstream unavailable", true},
		{"http 500 lowercase", "error code: 500", true},
		{"timeout exception name", "APITimeoutError: request took too long", true},
		{"request timed out", "Request timed out", true},
		{"internal server error", "Internal Server Error", true},
		{"token counting", "Error counting tokens for prompt", true},
		{"bad status code", "got bad status code from upstream", true},
		{"connection error", "Connection error.", true},
		{"remote disconnected", "Remote end closed connection without response", true},
		{"read timeout", "read timeout while waiting for completion", true},
		{"connect timeout", "connect timeout after 30s", true},
		{"localized gateway failure", "API 请求失败，请稍后再试", true},
		{"localized failure without marker", "今天请求失败了好多次呢", false},
		{"ordinary prose", "这位群友说话风趣幽默，常常自嘲，偶尔认真。", false},
		{"prose mentioning errors benignly", "他经常吐槽自己代码一堆 bug。", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LooksLikeError(tc.text); got != tc.want {
				t.Fatalf("LooksLikeError(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
