package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		mode string
		want   string
	}{
		{modeNumbered, "quiz_lifeguard_114.json"},
		{modeSentences, "quiz_114_sentences.json"},
		{modeWorkbook, "quiz_114_parsed.json"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.want, outputName(tt.mode, 114))
		})
	}
}

func TestOutputName_Distinct(t *testing.T) {
	seen := map[string]string{}
	for _, mode := range []string{modeNumbered, modeSentences, modeWorkbook} {
		name := outputName(mode, 114)
		if prev, dup := seen[name]; dup {
			t.Fatalf("%s and %s both write %s", prev, mode, name)
		}
		seen[name] = mode
	}
}
