package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n[{\"a\": 1}]\n```", `[{"a": 1}]`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"no fence", "  {\"a\": 1}  ", `{"a": 1}`},
		{"fence with whitespace", "  ```json\n[]\n```  ", "[]"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}

func TestNewOpenAIGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGenerator("", "gpt-4o")
	assert.Error(t, err)
}

func TestNewOllamaGenerator_RequiresServerURL(t *testing.T) {
	_, err := NewOllamaGenerator("", "qwen3:8b")
	assert.Error(t, err)
}
