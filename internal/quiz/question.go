// Package quiz turns the lifeguard certification question bank (published as
// PDF and Excel) into JSON question lists.
package quiz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Question types.
const (
	TypeTrueFalse      = "TF"
	TypeMultipleChoice = "MC"
)

// Question is one entry parsed from the numbered PDF layout.
type Question struct {
	ID      string `json:"id"`
	Chapter string `json:"chapter"`
	Type    string `json:"type"`
	Q       string `json:"q"`
	Choices string `json:"choices"`
	Ans     string `json:"ans"`
	Explain string `json:"explain"`
}

// Sentence is one entry of the sentence-split fallback parser.
type Sentence struct {
	Num      int    `json:"num"`
	Question string `json:"question"`
}

// Each question reads "<n>.<text>" followed on a later line by "(<answer>)".
var numberedRe = regexp.MustCompile(`(\d+)\.(.*?\n+?)\(([ABCDOX])\)`)

// ParseNumbered extracts numbered questions. Chapters are blocks of 100
// question numbers; O/X answers are true/false, A-D multiple choice.
func ParseNumbered(text string) []Question {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []Question
	for _, m := range numberedRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		q := Question{
			ID:      fmt.Sprintf("%04d", n),
			Chapter: fmt.Sprintf("CH%02d", n/100+1),
			Type:    TypeMultipleChoice,
			Q:       strings.TrimSpace(m[2]),
			Choices: "A|B|C|D",
			Ans:     m[3],
		}
		if q.Ans == "O" || q.Ans == "X" {
			q.Type = TypeTrueFalse
			q.Choices = ""
		}
		out = append(out, q)
	}
	return out
}

// ParseSentences joins all lines and treats every "。"-terminated sentence as a
// question, numbered from 1.
func ParseSentences(text string) []Sentence {
	joined := strings.NewReplacer("\r", "", "\n", "").Replace(text)

	var out []Sentence
	for _, part := range strings.Split(joined, "。") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, Sentence{Num: len(out) + 1, Question: part + "。"})
	}
	return out
}

// RocYear returns the Republic of China calendar year used in file names.
func RocYear(t time.Time) int {
	return t.Year() - 1911
}
