package normalize

import (
	"errors"
	"net/url"
	"strings"
)

// Community-submitted text is imperfect by nature; these helpers strip
// the dangerous parts instead of rejecting whole submissions.

// Text removes control characters and angle brackets, clamps to maxLen
// and trims. Empty results collapse to "".
func Text(input string, maxLen int) string {
	var b strings.Builder
	for _, ch := range input {
		if ch < 0x20 && ch != '\n' && ch != '\t' {
			continue
		}
		if ch == '<' || ch == '>' {
			continue
		}
		b.WriteRune(ch)
	}
	s := b.String()
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.TrimSpace(s)
}

// AddonName sanitizes a submitted addon name: control characters and
// angle brackets stripped, whitespace collapsed, clamped to 120 bytes.
func AddonName(input string) string {
	var b strings.Builder
	for _, ch := range input {
		if ch < 0x20 || ch == '<' || ch == '>' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(ch)
	}
	s := strings.Join(strings.Fields(b.String()), " ")
	if len(s) > 120 {
		s = s[:120]
	}
	return strings.TrimSpace(s)
}

// HTTPURL parses and re-serializes a submitted URL, accepting only
// http and https schemes.
func HTTPURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("unsupported URL scheme")
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	return u.String(), nil
}

// ClampScore forces a submitted severity into [1,5]; community
// submissions cannot mark an addon "safe", only articles can.
func ClampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}
