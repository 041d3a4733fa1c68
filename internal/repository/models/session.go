package models

import "time"

// Session is the database shape of quiz session metadata.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// QuizState is the database shape of persisted quiz progress. Quiz items
// and the answer map are stored as JSON CLOBs; the submitted flag as a
// NUMBER(1).
type QuizState struct {
	SessionID       string `db:"session_id"`
	QuizData        string `db:"quiz_data"`
	CurrentIndex    int    `db:"current_index"`
	UserAnswers     string `db:"user_answers"`
	Score           int    `db:"score"`
	AnswerSubmitted int    `db:"answer_submitted"`
}
