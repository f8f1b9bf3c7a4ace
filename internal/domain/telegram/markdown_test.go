package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"socow-vector", "socow\\-vector"},
		{"Посылка проверена!", "Посылка проверена\\!"},
		{"a_b*c[d]", "a\\_b\\*c\\[d\\]"},
		{"обычный текст", "обычный текст"},
		{"1.5 (из 10)", "1\\.5 \\(из 10\\)"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, EscapeMarkdownV2(tc.in))
	}
}

func TestMonospaceBlock(t *testing.T) {
	assert.Equal(t, "```\nsocow-vector\n```", MonospaceBlock("socow-vector"))
}
