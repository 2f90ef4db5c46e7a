package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ctxfeed/internal/models"
)

func TestEstimator_Estimate(t *testing.T) {
	est := NewEstimator(newProfile(1000, 0))

	tests := []struct {
		name string
		text string
		ct   models.ContentType
		want int
	}{
		{"empty", "", models.ContentText, 0},
		{"exact text", strings.Repeat("a", 40), models.ContentText, 10},
		{"rounds up", strings.Repeat("a", 41), models.ContentText, 11},
		{"code costs more", strings.Repeat("a", 30), models.ContentCode, 10},
		{"counts runes not bytes", "你好世界", models.ContentText, 1},
		{"mixed ratio", strings.Repeat("a", 7), models.ContentMixed, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, est.Estimate(tt.text, tt.ct))
		})
	}
}

func TestEstimator_FloatRatiosDoNotOvershoot(t *testing.T) {
	p := newProfile(1000, 0)
	p.CharsPerToken[models.ContentText] = 3.2
	est := NewEstimator(p)

	assert.Equal(t, 10, est.Estimate(strings.Repeat("a", 32), models.ContentText))
}

func TestEstimator_Idempotent(t *testing.T) {
	est := NewEstimator(newProfile(1000, 0))
	texts := []string{
		"plain prose about the login flow",
		"func main() {\n\tfmt.Println(\"hi\");\n}\n",
		`{"key": "value", "list": [1, 2, 3]}`,
		"# Title\n\n- one\n- two\n",
	}
	for _, text := range texts {
		first := est.Estimate(text, models.ContentAuto)
		second := est.Estimate(text, models.ContentAuto)
		assert.Equal(t, first, second, text)
	}
}

func TestEstimator_AutoDetect(t *testing.T) {
	est := NewEstimator(newProfile(1000, 0))
	json := `{"a": "bbbbbbbbbbbbbbbbbbbbbbb"}`
	assert.Equal(t, est.Estimate(json, models.ContentStructured), est.Estimate(json, models.ContentAuto))
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.ContentType
	}{
		{"empty", "   ", models.ContentText},
		{"prose", "The login service should reject expired tokens and log the attempt.", models.ContentText},
		{"prose with parens", "Hello (world), this is fine.", models.ContentText},
		{"json object", `{"name": "auth", "enabled": true}`, models.ContentStructured},
		{"json array", `[1, 2, 3]`, models.ContentStructured},
		{"broken json is not structured", `{"name": "auth",`, models.ContentText},
		{
			"go code",
			"package main\n\nimport \"fmt\"\n\nfunc main() {\n\tx := 1\n\tfmt.Println(x)\n}\n",
			models.ContentCode,
		},
		{
			"typescript",
			"export function login(user: User): boolean {\n  if (user.token === undefined) {\n    return false;\n  }\n  return true;\n}",
			models.ContentCode,
		},
		{
			"markdown",
			"# Plan\n\nWe will do the following:\n\n- write tests\n- ship it\n",
			models.ContentFormatted,
		},
		{
			"markdown with code",
			"# Fix\n\n```go\nfunc f() int {\n\treturn 1;\n}\n```\n\nfunc g() { x := 2; }\n",
			models.ContentMixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.text))
		})
	}
}
