package tools

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var spaces = regexp.MustCompile(`[ \t\r\f\v]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

func ChecksumSHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CollapseSpaces squeezes runs of horizontal whitespace and blank lines.
func CollapseSpaces(s string) string {
	s = spaces.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Excerpt returns at most n runes of s without splitting a rune.
func Excerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// NormalizeRelation turns "builds upon", "Builds-Upon" or "buildsUpon" into
// BUILDS_UPON.
func NormalizeRelation(s string) string {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sb.Len() > 0 && (pendingSep || (prevLower && unicode.IsUpper(r))) {
				sb.WriteByte('_')
			}
			pendingSep = false
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
			sb.WriteRune(unicode.ToUpper(r))
		default:
			pendingSep = true
			prevLower = false
		}
	}
	return sb.String()
}

// ClampWeight bounds w to [0,1].
func ClampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
