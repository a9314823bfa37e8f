package logging

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "alice", SanitizeForLog("alice", 64))
	assert.Equal(t, "abc...[truncated]", SanitizeForLog("abcdef", 3))

	// "é" is two bytes; a cut at byte 2 would land inside it
	assert.Equal(t, "a...[truncated]", SanitizeForLog("aéz", 2))
	assert.Equal(t, "...[truncated]", SanitizeForLog("日本", 2))
}

func TestProperty_SanitizeForLog_ValidUTF8Prefix(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.String().Draw(rt, "data")
		maxLen := rapid.IntRange(0, 32).Draw(rt, "maxLen")

		got := SanitizeForLog(data, maxLen)
		if !utf8.ValidString(data) {
			return
		}
		if !utf8.ValidString(got) {
			rt.Fatalf("PROPERTY VIOLATION: %q truncated to invalid UTF-8 %q", data, got)
		}
		kept := strings.TrimSuffix(got, "...[truncated]")
		if !strings.HasPrefix(data, kept) || len(kept) > maxLen {
			rt.Fatalf("PROPERTY VIOLATION: %q is not a prefix of %q within %d bytes", kept, data, maxLen)
		}
	})
}
