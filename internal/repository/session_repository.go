package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"knowval/internal/domain"
	"knowval/internal/repository/models"
	"knowval/internal/util"

	"github.com/jmoiron/sqlx"
)

// SessionDatabaseAdapter implements domain.SessionRepository using sqlx.DB.
type SessionDatabaseAdapter struct {
	db *sqlx.DB
}

// NewSessionDatabaseAdapter creates a new instance of SessionDatabaseAdapter
func NewSessionDatabaseAdapter(db *sqlx.DB) domain.SessionRepository {
	return &SessionDatabaseAdapter{db: db}
}

// CreateSession implements domain.SessionRepository
func (a *SessionDatabaseAdapter) CreateSession(ctx context.Context, session *domain.QuizSession) error {
	if session == nil {
		return fmt.Errorf("cannot create nil session")
	}
	if session.ID == "" {
		session.ID = util.NewULID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	query := `INSERT INTO sessions (id, user_id, name, created_at) VALUES (:1, :2, :3, :4)`
	_, err := a.db.ExecContext(ctx, query, session.ID, session.UserID, session.Name, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession implements domain.SessionRepository
func (a *SessionDatabaseAdapter) GetSession(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	var modelSession models.Session
	query := `SELECT
		id "id",
		user_id "user_id",
		name "name",
		created_at "created_at"
	FROM sessions
	WHERE id = :1`

	err := a.db.GetContext(ctx, &modelSession, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return toDomainSession(&modelSession), nil
}

// ListSessionsByUser implements domain.SessionRepository
func (a *SessionDatabaseAdapter) ListSessionsByUser(ctx context.Context, userID string) ([]*domain.QuizSession, error) {
	var modelSessions []models.Session
	query := `SELECT
		id "id",
		user_id "user_id",
		name "name",
		created_at "created_at"
	FROM sessions
	WHERE user_id = :1
	ORDER BY created_at DESC`

	err := a.db.SelectContext(ctx, &modelSessions, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}

	sessions := make([]*domain.QuizSession, 0, len(modelSessions))
	for i := range modelSessions {
		sessions = append(sessions, toDomainSession(&modelSessions[i]))
	}
	return sessions, nil
}

// UpdateSessionName implements domain.SessionRepository
func (a *SessionDatabaseAdapter) UpdateSessionName(ctx context.Context, sessionID, name string) error {
	query := `UPDATE sessions SET name = :1 WHERE id = :2`
	_, err := a.db.ExecContext(ctx, query, name, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session name for %s: %w", sessionID, err)
	}
	return nil
}

// DeleteSession implements domain.SessionRepository. Quiz state is removed
// alongside the session row.
func (a *SessionDatabaseAdapter) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM quiz_state WHERE session_id = :1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete quiz state for %s: %w", sessionID, err)
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = :1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// SaveState implements domain.SessionRepository as a MERGE upsert keyed by
// session_id. Saving the same tuple repeatedly leaves exactly one row.
func (a *SessionDatabaseAdapter) SaveState(ctx context.Context, state *domain.QuizState) error {
	modelState, err := fromDomainQuizState(state)
	if err != nil {
		return err
	}

	query := `MERGE INTO quiz_state t
	USING (SELECT :1 AS session_id FROM dual) s
	ON (t.session_id = s.session_id)
	WHEN MATCHED THEN UPDATE SET
		quiz_data = :2,
		current_index = :3,
		user_answers = :4,
		score = :5,
		answer_submitted = :6
	WHEN NOT MATCHED THEN INSERT (
		session_id, quiz_data, current_index, user_answers, score, answer_submitted
	) VALUES (
		:7, :8, :9, :10, :11, :12
	)`

	_, err = a.db.ExecContext(ctx, query,
		modelState.SessionID,
		modelState.QuizData,
		modelState.CurrentIndex,
		modelState.UserAnswers,
		modelState.Score,
		modelState.AnswerSubmitted,
		modelState.SessionID,
		modelState.QuizData,
		modelState.CurrentIndex,
		modelState.UserAnswers,
		modelState.Score,
		modelState.AnswerSubmitted,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz state for %s: %w", modelState.SessionID, err)
	}
	return nil
}

// LoadState implements domain.SessionRepository
func (a *SessionDatabaseAdapter) LoadState(ctx context.Context, sessionID string) (*domain.QuizState, error) {
	var modelState models.QuizState
	query := `SELECT
		session_id "session_id",
		quiz_data "quiz_data",
		current_index "current_index",
		user_answers "user_answers",
		score "score",
		answer_submitted "answer_submitted"
	FROM quiz_state
	WHERE session_id = :1`

	err := a.db.GetContext(ctx, &modelState, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load quiz state for %s: %w", sessionID, err)
	}
	return toDomainQuizState(&modelState)
}

func toDomainSession(m *models.Session) *domain.QuizSession {
	if m == nil {
		return nil
	}
	return &domain.QuizSession{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// fromDomainQuizState encodes quiz items and the answer map as JSON. The
// answer map's integer keys are stringified by encoding/json; the decode
// path restores them as integers.
func fromDomainQuizState(state *domain.QuizState) (*models.QuizState, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot save nil quiz state")
	}
	if state.SessionID == "" {
		return nil, fmt.Errorf("quiz state requires a session id")
	}

	quizData, err := json.Marshal(state.Quiz)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz data: %w", err)
	}

	answers := state.UserAnswers
	if answers == nil {
		answers = map[int]domain.AnswerRecord{}
	}
	answerData, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user answers: %w", err)
	}

	submitted := 0
	if state.AnswerSubmitted {
		submitted = 1
	}

	return &models.QuizState{
		SessionID:       state.SessionID,
		QuizData:        string(quizData),
		CurrentIndex:    state.CurrentIndex,
		UserAnswers:     string(answerData),
		Score:           state.Score,
		AnswerSubmitted: submitted,
	}, nil
}

func toDomainQuizState(m *models.QuizState) (*domain.QuizState, error) {
	if m == nil {
		return nil, nil
	}

	var quiz []domain.QuizItem
	if m.QuizData != "" {
		if err := json.Unmarshal([]byte(m.QuizData), &quiz); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quiz data for %s: %w", m.SessionID, err)
		}
	}

	answers := map[int]domain.AnswerRecord{}
	if m.UserAnswers != "" {
		if err := json.Unmarshal([]byte(m.UserAnswers), &answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user answers for %s: %w", m.SessionID, err)
		}
	}

	return &domain.QuizState{
		SessionID:       m.SessionID,
		Quiz:            quiz,
		CurrentIndex:    m.CurrentIndex,
		UserAnswers:     answers,
		Score:           m.Score,
		AnswerSubmitted: m.AnswerSubmitted != 0,
	}, nil
}
