package services

import (
  "path/filepath"
  "testing"

  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/ndstyle/mindflow-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
  t.Helper()
  dbPath := filepath.Join(t.TempDir(), "mindflow_test.db")
  db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
    Logger: gormlogger.Default.LogMode(gormlogger.Silent),
  })
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  if err := db.AutoMigrate(
    &types.Document{},
    &types.DocumentChunk{},
    &types.Node{},
    &types.Question{},
    &types.Attempt{},
    &types.Review{},
    &types.JobRun{},
  ); err != nil {
    t.Fatalf("migrate: %v", err)
  }
  return db
}
