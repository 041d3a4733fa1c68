package handler

import (
	"knowval/internal/domain"
	"knowval/internal/dto"
	"knowval/internal/middleware"
	"knowval/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// SessionHandler handles session lifecycle and answer flow requests
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler creates a new SessionHandler instance
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSession godoc
// @Summary Create a quiz session
// @Description Creates a named quiz session for the authenticated user
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest true "Session name (optional, a default is generated)"
// @Success 201 {object} dto.SessionResponse
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)

	var req dto.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return domain.NewInvalidInputError("invalid request body")
	}

	session, err := h.sessionService.CreateSession(c.Context(), userID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

// ListSessions godoc
// @Summary List quiz sessions
// @Description Lists the authenticated user's sessions, newest first
// @Tags sessions
// @Produce json
// @Success 200 {object} dto.SessionListResponse
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)

	sessions, err := h.sessionService.ListSessions(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.SessionListResponse{
		Sessions: lo.Map(sessions, func(s *domain.QuizSession, _ int) dto.SessionResponse {
			return toSessionResponse(s)
		}),
	})
}

// RenameSession godoc
// @Summary Rename a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.RenameSessionRequest true "New name"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id} [patch]
func (h *SessionHandler) RenameSession(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	var req dto.RenameSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if err := h.sessionService.RenameSession(c.Context(), userID, sessionID, req.Name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": sessionID, "name": req.Name})
}

// DeleteSession godoc
// @Summary Delete a session
// @Description Deletes a session together with its quiz state
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	if err := h.sessionService.DeleteSession(c.Context(), userID, sessionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetState godoc
// @Summary Get quiz state
// @Description Returns the current question and progress for a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.QuizStateResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/quiz [get]
func (h *SessionHandler) GetState(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	session, err := h.sessionService.GetState(c.Context(), userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(toStateResponse(session))
}

// SubmitAnswer godoc
// @Summary Answer the current question
// @Description Grades the submitted choice; repeated submissions do not change the score
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.SubmitAnswerRequest true "Chosen option letter"
// @Success 200 {object} dto.SubmitAnswerResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/quiz/answer [post]
func (h *SessionHandler) SubmitAnswer(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}

	record, persisted, err := h.sessionService.SubmitAnswer(c.Context(), userID, sessionID, req.Choice)
	if err != nil {
		return err
	}

	session, err := h.sessionService.GetState(c.Context(), userID, sessionID)
	if err != nil {
		return err
	}

	return c.JSON(dto.SubmitAnswerResponse{
		IsCorrect:     record.IsCorrect,
		CorrectChoice: record.CorrectChoice,
		Explanation:   record.Explanation,
		Score:         session.Score,
		Persisted:     persisted,
	})
}

// AdvanceQuiz godoc
// @Summary Move to the next question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.QuizStateResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/quiz/next [post]
func (h *SessionHandler) AdvanceQuiz(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	session, _, err := h.sessionService.Advance(c.Context(), userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(toStateResponse(session))
}

// GetResults godoc
// @Summary Get quiz results
// @Description Returns the score summary and per-question review for a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.QuizResultsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/quiz/results [get]
func (h *SessionHandler) GetResults(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	results, err := h.sessionService.Results(c.Context(), userID, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.QuizResultsResponse{
		SessionID:  results.SessionID,
		Score:      results.Score,
		MaxScore:   results.MaxScore,
		Percentage: results.Percentage,
		Tier:       results.Tier,
		Answered:   results.Answered,
		Total:      results.Total,
		Review: lo.Map(results.Review, func(entry service.ReviewEntry, _ int) dto.AnswerReviewResponse {
			return dto.AnswerReviewResponse{
				Index:         entry.Index,
				Question:      entry.Record.Question,
				UserChoice:    entry.Record.UserChoice,
				CorrectChoice: entry.Record.CorrectChoice,
				IsCorrect:     entry.Record.IsCorrect,
				Explanation:   entry.Record.Explanation,
			}
		}),
	})
}

// EvaluateElaboration godoc
// @Summary Evaluate a written explanation
// @Description Scores a free-text explanation of a quiz question against its source material
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.EvaluateElaborationRequest true "Question index and written answer"
// @Success 200 {object} dto.EvaluateElaborationResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/quiz/evaluate [post]
func (h *SessionHandler) EvaluateElaboration(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Params("id")

	var req dto.EvaluateElaborationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}

	evaluation, err := h.sessionService.EvaluateElaboration(c.Context(), userID, sessionID, req.QuestionIndex, req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(dto.EvaluateElaborationResponse{
		Score:           evaluation.Score,
		Feedback:        evaluation.Feedback,
		KeywordsPresent: evaluation.KeywordsPresent,
		KeywordsMissing: evaluation.KeywordsMissing,
	})
}

func toSessionResponse(s *domain.QuizSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
}

func toStateResponse(s *domain.QuizSession) dto.QuizStateResponse {
	resp := dto.QuizStateResponse{
		SessionID:       s.ID,
		CurrentIndex:    s.CurrentIndex,
		TotalQuestions:  len(s.Quiz),
		Score:           s.Score,
		AnswerSubmitted: s.AnswerSubmitted,
		Completed:       s.Completed(),
	}
	if !s.Completed() {
		item := s.Quiz[s.CurrentIndex]
		resp.Question = &dto.QuizItemResponse{
			Index:    s.CurrentIndex,
			Question: item.Question,
			Options:  item.Options,
		}
	}
	return resp
}
