package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeGenerator_Format(t *testing.T) {
	g := NewCodeGenerator()
	for range 500 {
		code := g.Generate()
		assert.True(t, ValidCode(code), code)
	}
}

func TestCodeGenerator_SuffixRange(t *testing.T) {
	low := &CodeGenerator{intN: func(int) int { return 0 }}
	assert.Equal(t, "HAPPY-PASTA-1", low.Generate())

	high := &CodeGenerator{intN: func(n int) int { return n - 1 }}
	assert.Equal(t, "TOASTY-PRETZEL-99", high.Generate())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "HAPPY-PASTA-42", NormalizeCode("  happy-Pasta-42\n"))
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"HAPPY-PASTA-42", true},
		{"HAPPY-PASTA-7", true},
		{"HAPPY-PASTA-100", false},
		{"happy-pasta-42", false},
		{"HAPPY-PASTA", false},
		{"HAPPY_PASTA_42", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCode(tt.code), tt.code)
	}
}
