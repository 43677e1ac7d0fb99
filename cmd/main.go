package main

import (
  "context"
  "fmt"
  "os"
  "os/signal"
  "syscall"

  "github.com/ndstyle/mindflow-backend/internal/db"
  "github.com/ndstyle/mindflow-backend/internal/handlers"
  "github.com/ndstyle/mindflow-backend/internal/jobs"
  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/server"
  "github.com/ndstyle/mindflow-backend/internal/services"
  "github.com/ndstyle/mindflow-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Fatal("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  documentRepo := repos.NewDocumentRepo(thePG, log)
  chunkRepo := repos.NewDocumentChunkRepo(thePG, log)
  nodeRepo := repos.NewNodeRepo(thePG, log)
  questionRepo := repos.NewQuestionRepo(thePG, log)
  attemptRepo := repos.NewAttemptRepo(thePG, log)
  reviewRepo := repos.NewReviewRepo(thePG, log)
  jobRunRepo := repos.NewJobRunRepo(thePG, log)

  // Clients
  log.Info("Setting up OpenAI client from main...")
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Fatal("OpenAI client init failed", "error", err)
  }

  // Services
  log.Info("Setting up Services from main...")
  validator := services.NewContentValidator(log, openaiClient)
  structuring := services.NewStructuringService(log, openaiClient, nodeRepo)
  assessment := services.NewAssessmentService(log, openaiClient, questionRepo, services.NewJaccardDetector())
  mastery := services.NewMasteryService(log, reviewRepo)
  pipeline := services.NewPipelineService(log, documentRepo, chunkRepo, nodeRepo, structuring, assessment)
  documentService := services.NewDocumentService(log, thePG, validator, documentRepo, chunkRepo, nodeRepo, questionRepo, attemptRepo, jobRunRepo, mastery)

  // Jobs worker
  log.Info("Setting up job worker from main...")
  registry := jobs.NewRegistry()
  registry.Register(services.JobTypeDocumentProcess, jobs.NewDocumentProcessHandler(pipeline))
  workerConcurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, log)
  worker := jobs.NewWorker(log, jobRunRepo, documentRepo, registry, workerConcurrency)

  ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
  defer stop()
  worker.Start(ctx)

  // HTTP
  router := server.NewRouter(server.RouterConfig{
    DocumentHandler: handlers.NewDocumentHandler(log, documentService),
    QuizHandler:     handlers.NewQuizHandler(log, documentService),
  })
  port := utils.GetEnv("PORT", "8080", log)
  log.Info("Starting HTTP server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("HTTP server exited", "error", err)
  }
}
