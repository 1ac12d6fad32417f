package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	valid := []string{
		"a@b.com",
		"johndoe@example.com",
		"first.last+tag@sub.domain.org",
	}
	for _, addr := range valid {
		assert.True(t, ValidEmail(addr), addr)
	}

	invalid := []string{
		"",
		"no-at-sign",
		"@missing-local.com",
		"missing-domain@",
		"two words@example.com",
		"trailing@example",
		"unicode@exämple.com",
	}
	for _, addr := range invalid {
		assert.False(t, ValidEmail(addr), addr)
	}
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"johndoe@example.com": "jo***@example.com",
		"jo@x.com":            "**@x.com",
		"a@b.com":             "*@b.com",
		"abc@d.com":           "ab***@d.com",
		"not-an-email":        "***",
		"":                    "***",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}
