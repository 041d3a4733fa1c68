package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTestCandidate() QuestionCandidate {
	return QuestionCandidate{
		ChunkIndex: 0,
		Question:   "Which gas do plants absorb during photosynthesis?",
		Options: map[string]string{
			"A": "Oxygen",
			"B": "Carbon dioxide",
			"C": "Nitrogen",
			"D": "Hydrogen",
		},
		CorrectAnswer: "B",
		Explanation:   "Plants fix carbon dioxide in the Calvin cycle.",
		Keywords:      []string{"photosynthesis"},
	}
}

func TestQuestionCandidateValidate_Valid(t *testing.T) {
	cand := validTestCandidate()
	assert.NoError(t, cand.Validate())
}

func TestQuestionCandidateValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*QuestionCandidate)
	}{
		{"empty question", func(c *QuestionCandidate) { c.Question = "   " }},
		{"null placeholder", func(c *QuestionCandidate) { c.Question = "null" }},
		{"None placeholder", func(c *QuestionCandidate) { c.Question = "None" }},
		{"too few options", func(c *QuestionCandidate) { delete(c.Options, "D") }},
		{"wrong option keys", func(c *QuestionCandidate) {
			delete(c.Options, "D")
			c.Options["E"] = "extra"
		}},
		{"empty option text", func(c *QuestionCandidate) { c.Options["C"] = " " }},
		{"duplicate option texts", func(c *QuestionCandidate) { c.Options["C"] = c.Options["A"] }},
		{"correct letter not an option", func(c *QuestionCandidate) { c.CorrectAnswer = "E" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cand := validTestCandidate()
			tc.mutate(&cand)
			assert.Error(t, cand.Validate())
		})
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyEasy, NormalizeDifficulty(" EASY "))
	assert.Equal(t, DifficultyHard, NormalizeDifficulty("hard"))
	assert.Equal(t, DifficultyMedium, NormalizeDifficulty("medium"))
	assert.Equal(t, DifficultyMedium, NormalizeDifficulty(""))
	assert.Equal(t, DifficultyMedium, NormalizeDifficulty("impossible"))
}
