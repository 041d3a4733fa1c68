package domain

import (
	"strings"
)

// OptionLetters is the canonical answer-key order for a multiple-choice item.
var OptionLetters = []string{"A", "B", "C", "D"}

// Difficulty levels accepted by the question synthesizer.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// NormalizeDifficulty maps free-form input onto a known level, defaulting
// to Medium.
func NormalizeDifficulty(diff string) string {
	switch strings.ToLower(strings.TrimSpace(diff)) {
	case "easy":
		return DifficultyEasy
	case "hard":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// QuestionCandidate is one parsed question object from a raw model response.
// Candidates must pass Validate before acceptance; malformed candidates are
// discarded, never repaired.
type QuestionCandidate struct {
	ChunkIndex  int               `json:"chunk_index"`
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation string            `json:"explanation"`
	Keywords    []string          `json:"keywords"`
}

// Validate checks the structural requirements for a candidate: a real
// question text, exactly 4 distinct options keyed A-D, and a correct-answer
// letter that is one of those keys. The generation service is allowed to
// answer "null" for chunks it judged irrelevant; those are invalid here.
func (c *QuestionCandidate) Validate() error {
	q := strings.TrimSpace(c.Question)
	if q == "" {
		return NewError(CodeValidation, "question is empty", nil)
	}
	switch strings.ToLower(q) {
	case "null", "none":
		return NewError(CodeValidation, "question is a null placeholder", nil)
	}
	if len(c.Options) != 4 {
		return NewError(CodeValidation, "options must have exactly 4 entries", nil)
	}
	seen := make(map[string]bool, 4)
	for _, letter := range OptionLetters {
		text, ok := c.Options[letter]
		if !ok {
			return NewError(CodeValidation, "options must be keyed A through D", nil)
		}
		if strings.TrimSpace(text) == "" {
			return NewError(CodeValidation, "option text is empty", nil)
		}
		if seen[text] {
			return NewError(CodeValidation, "option texts must be distinct", nil)
		}
		seen[text] = true
	}
	if _, ok := c.Options[c.CorrectAnswer]; !ok {
		return NewError(CodeValidation, "correct answer letter is not among the options", nil)
	}
	return nil
}

// QuizItem is an accepted candidate after option reshuffling, with its
// 1-based position in the quiz and the originating chunk content retained
// for later evaluation.
type QuizItem struct {
	ChunkID       int               `json:"chunk_id"`
	ChunkContent  string            `json:"chunk_content"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
	Keywords      []string          `json:"keywords"`
}
