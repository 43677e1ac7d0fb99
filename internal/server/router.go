package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/ndstyle/mindflow-backend/internal/handlers"
)

type RouterConfig struct {
  DocumentHandler *handlers.DocumentHandler
  QuizHandler     *handlers.QuizHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  // Auth/session issuance lives in a separate service; callers arrive here
  // already holding their user id.
  api := router.Group("/api")
  {
    api.POST("/documents", cfg.DocumentHandler.Upload)
    api.GET("/documents/:id/status", cfg.DocumentHandler.GetStatus)
    api.GET("/documents/:id/nodes", cfg.DocumentHandler.GetNodes)
    api.GET("/nodes/:id/questions", cfg.QuizHandler.GetQuestions)
    api.POST("/attempts", cfg.QuizHandler.SubmitAttempt)
  }

  return router
}
