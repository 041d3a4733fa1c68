// @title Knowval API
// @version 1.0
// @description Document-grounded quiz generation and evaluation service.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"knowval/internal/adapter"
	"knowval/internal/adapter/embedding"
	"knowval/internal/adapter/evaluator"
	"knowval/internal/adapter/generation"
	"knowval/internal/adapter/retrieval"
	"knowval/internal/cache"
	"knowval/internal/config"
	"knowval/internal/database"
	"knowval/internal/domain"
	"knowval/internal/handler"
	"knowval/internal/logger"
	"knowval/internal/middleware"
	"knowval/internal/repository"
	"knowval/internal/service"

	_ "knowval/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Embedding service
	var embeddingService domain.EmbeddingService

	// Redis comes first so the embedding adapters can cache vectors.
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	appLogger.Info("RedisCacheAdapter initialized")

	switch cfg.Embedding.Source {
	case "ollama":
		appLogger.Info("Initializing Ollama Embedding Service",
			zap.String("server_url", cfg.Embedding.Ollama.ServerURL),
			zap.String("model", cfg.Embedding.Ollama.Model))
		embeddingService, err = embedding.NewOllamaEmbeddingService(cfg.Embedding.Ollama.ServerURL, cfg.Embedding.Ollama.Model)
		if err != nil {
			appLogger.Fatal("Failed to create Ollama Embedding Service", zap.Error(err))
		}
	case "openai":
		appLogger.Info("Initializing OpenAI Embedding Service", zap.String("model", cfg.Embedding.OpenAI.Model))
		embeddingService, err = embedding.NewOpenAIEmbeddingService(cfg.Embedding.OpenAI.APIKey, cfg.Embedding.OpenAI.Model, cacheAdapter, cfg)
		if err != nil {
			appLogger.Fatal("Failed to create OpenAI Embedding Service", zap.Error(err))
		}
	default:
		appLogger.Fatal(fmt.Sprintf("Unsupported embedding source: %s. Please check EMBEDDING_SOURCE in config.", cfg.Embedding.Source))
	}

	// Text generator
	var generator domain.TextGenerator
	switch cfg.LLM.Source {
	case "ollama":
		appLogger.Info("Initializing Ollama generator",
			zap.String("server_url", cfg.LLM.Ollama.ServerURL),
			zap.String("model", cfg.LLM.Ollama.Model))
		generator, err = generation.NewOllamaGenerator(cfg.LLM.Ollama.ServerURL, cfg.LLM.Ollama.Model)
		if err != nil {
			appLogger.Fatal("Failed to create Ollama generator", zap.Error(err))
		}
	case "openai":
		appLogger.Info("Initializing OpenAI generator", zap.String("model", cfg.LLM.OpenAI.Model))
		generator, err = generation.NewOpenAIGenerator(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model)
		if err != nil {
			appLogger.Fatal("Failed to create OpenAI generator", zap.Error(err))
		}
	default:
		appLogger.Fatal(fmt.Sprintf("Unsupported LLM source: %s. Please check LLM_SOURCE in config.", cfg.LLM.Source))
	}

	// Vector index
	retriever, err := retrieval.NewPineconeRetriever(cfg.Pinecone, embeddingService)
	if err != nil {
		appLogger.Fatal("Failed to create Pinecone retriever", zap.Error(err))
	}
	appLogger.Info("Pinecone retriever initialized",
		zap.String("index", cfg.Pinecone.IndexName),
		zap.String("namespace", cfg.Pinecone.Namespace))

	// Database
	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Successfully connected to Oracle database")

	sessionRepository := repository.NewSessionDatabaseAdapter(db)

	// Services
	gateway := service.NewRetrievalGateway(retriever, cfg.Quiz.MMRLambda)
	topicService := service.NewTopicService(generator, retriever, cacheAdapter, cfg)
	synthesizer := service.NewQuestionSynthesizer(generator)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	quizService := service.NewQuizService(gateway, topicService, synthesizer, cfg.Quiz.SimilarityThreshold, rng)

	answerEvaluator := evaluator.NewLLMEvaluator(generator)
	sessionService := service.NewSessionService(sessionRepository, answerEvaluator)

	// Handlers
	quizHandler := handler.NewQuizHandler(quizService, sessionService)
	sessionHandler := handler.NewSessionHandler(sessionService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(recover.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	apiGroup := app.Group("/api")
	protected := middleware.Protected(cfg.Auth.JWTSecret)

	quizGroup := apiGroup.Group("/quiz", protected)
	quizGroup.Post("/generate", quizHandler.GenerateQuiz)
	quizGroup.Get("/topics", quizHandler.DiscoverTopics)

	sessionGroup := apiGroup.Group("/sessions", protected)
	sessionGroup.Post("/", sessionHandler.CreateSession)
	sessionGroup.Get("/", sessionHandler.ListSessions)
	sessionGroup.Patch("/:id", sessionHandler.RenameSession)
	sessionGroup.Delete("/:id", sessionHandler.DeleteSession)
	sessionGroup.Get("/:id/quiz", sessionHandler.GetState)
	sessionGroup.Post("/:id/quiz/answer", sessionHandler.SubmitAnswer)
	sessionGroup.Post("/:id/quiz/next", sessionHandler.AdvanceQuiz)
	sessionGroup.Get("/:id/quiz/results", sessionHandler.GetResults)
	sessionGroup.Post("/:id/quiz/evaluate", sessionHandler.EvaluateElaboration)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
