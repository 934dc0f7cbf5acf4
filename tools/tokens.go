package tools

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens returns the cl100k_base token count, or roughly one token per
// four runes when the encoding is unavailable.
func CountTokens(text string) int {
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TruncateTokens cuts text to at most max tokens. The second result reports
// whether anything was removed.
func TruncateTokens(text string, max int) (string, bool) {
	if max <= 0 || text == "" {
		return text, false
	}
	if e := encoding(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= max {
			return text, false
		}
		return e.Decode(tokens[:max]), true
	}
	return Excerpt(text, max*4), utf8.RuneCountInString(text) > max*4
}
