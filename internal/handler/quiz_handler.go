package handler

import (
	"knowval/internal/domain"
	"knowval/internal/dto"
	"knowval/internal/logger"
	"knowval/internal/middleware"
	"knowval/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// QuizHandler handles quiz generation and topic discovery requests
type QuizHandler struct {
	quizService    service.QuizGenerationService
	sessionService service.SessionService
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(quizService service.QuizGenerationService, sessionService service.SessionService) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		sessionService: sessionService,
	}
}

// GenerateQuiz godoc
// @Summary Generate a quiz
// @Description Generates a multiple-choice quiz on a topic from the session's ingested documents and installs it into the session
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.GenerateQuizRequest true "Generation parameters"
// @Success 200 {object} dto.GenerateQuizResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Security BearerAuth
// @Router /quiz/generate [post]
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)

	var req dto.GenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}
	if req.SessionID == "" {
		return domain.NewInvalidInputError("session_id is required")
	}

	owner := domain.OwnerFilter{UserID: userID, SessionID: req.SessionID}
	quiz, err := h.quizService.GenerateQuiz(c.Context(), req.Topic, req.Difficulty, req.NumQuestions, owner)
	if err != nil {
		return err
	}

	session, persisted, err := h.sessionService.StartQuiz(c.Context(), userID, req.SessionID, quiz)
	if err != nil {
		return err
	}
	if !persisted {
		logger.Get().Warn("quiz generated but state could not be persisted",
			zap.String("session_id", session.ID))
	}

	return c.JSON(dto.GenerateQuizResponse{
		SessionID: session.ID,
		Requested: req.NumQuestions,
		Generated: len(quiz),
		Persisted: persisted,
		Questions: lo.Map(quiz, func(item domain.QuizItem, i int) dto.QuizItemResponse {
			return dto.QuizItemResponse{
				Index:    i,
				Question: item.Question,
				Options:  item.Options,
			}
		}),
	})
}

// DiscoverTopics godoc
// @Summary Discover quiz topics
// @Description Suggests the main subject areas found in the session's documents
// @Tags quiz
// @Produce json
// @Param session_id query string true "Session ID"
// @Success 200 {object} dto.DiscoverTopicsResponse
// @Security BearerAuth
// @Router /quiz/topics [get]
func (h *QuizHandler) DiscoverTopics(c *fiber.Ctx) error {
	userID := c.Locals(middleware.UserIDKey).(string)
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return domain.NewInvalidInputError("session_id is required")
	}

	owner := domain.OwnerFilter{UserID: userID, SessionID: sessionID}
	topics := h.quizService.DiscoverTopics(c.Context(), owner)

	return c.JSON(dto.DiscoverTopicsResponse{Topics: topics})
}
