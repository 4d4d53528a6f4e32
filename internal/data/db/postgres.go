package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	host := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
	port := utils.GetEnv("POSTGRES_PORT", "5432", logg)
	user := utils.GetEnv("POSTGRES_USER", "postgres", logg)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", logg)
	name := utils.GetEnv("POSTGRES_NAME", "rpchat", logg)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, name,
	)

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}
	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&domain.Character{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.Provider{},
		&domain.KnowledgeBase{},
		&domain.KBChunk{},
		&domain.PromptTemplate{},
	); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}

	fks := []string{
		`ALTER TABLE "conversation"
		 ADD CONSTRAINT "fk_conversation_character_id"
		 FOREIGN KEY ("character_id") REFERENCES "character"("id")
		 ON DELETE SET NULL`,
		`ALTER TABLE "conversation"
		 ADD CONSTRAINT "fk_conversation_provider_id"
		 FOREIGN KEY ("provider_id") REFERENCES "provider"("id")
		 ON DELETE SET NULL`,
		`ALTER TABLE "message"
		 ADD CONSTRAINT "fk_message_conversation_id"
		 FOREIGN KEY ("conversation_id") REFERENCES "conversation"("id")
		 ON DELETE CASCADE`,
		`ALTER TABLE "kb_chunk"
		 ADD CONSTRAINT "fk_kb_chunk_knowledge_base_id"
		 FOREIGN KEY ("knowledge_base_id") REFERENCES "knowledge_base"("id")
		 ON DELETE CASCADE`,
	}
	for _, stmt := range fks {
		if err := s.db.Exec(stmt).Error; err != nil {
			// Re-running migrations against an existing schema hits
			// duplicate constraint errors; those are fine.
			s.log.Debug("Foreign key statement skipped", "error", err)
		}
	}
	return nil
}
