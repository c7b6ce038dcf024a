package drive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Acme Holdings", "Acme_Holdings"},
		{"punctuation collapsed", "W-2 Form (2024)?", "W_2_Form_2024"},
		{"leading and trailing symbols", "  ++Annual Report++  ", "Annual_Report"},
		{"consecutive separators", "a -- b", "a_b"},
		{"digits kept", "Q3 2025", "Q3_2025"},
		{"empty", "", "unnamed"},
		{"only symbols", "???///", "unnamed"},
		{"unicode folded", "Café Nuñez", "Caf_Nu_ez"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeTruncation(t *testing.T) {
	long := strings.Repeat("ab ", 40)
	out := Sanitize(long)
	assert.LessOrEqual(t, len(out), DefaultSegmentLength)
	assert.False(t, strings.HasSuffix(out, "_"), "truncation must not leave a trailing underscore")
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"W-2 Form (2024)?",
		strings.Repeat("question about fees ", 10),
		"",
		"___",
		"already_clean",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeNCustomLength(t *testing.T) {
	assert.Equal(t, "abc", SanitizeN("abc def", 3))
	assert.Equal(t, "ab", SanitizeN("ab_cd", 3), "cut must not end in underscore")
}
