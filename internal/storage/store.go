// Package storage is the gorm-backed record store.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store holds the DB pool and repositories.
type Store struct {
	db            *gorm.DB
	Users         *UserRepo
	Characters    *CharacterRepo
	Conversations *ConversationRepo
	Messages      *MessageRepo
	Emotions      *EmotionRepo
}

// Dialector returns the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// NewStore opens the database for driver and initializes repositories.
func NewStore(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	return Open(ctx, dialector)
}

// Open initializes a Store on an arbitrary dialector.
func Open(ctx context.Context, dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// sqlite allows a single writer; queue callers on one connection.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Characters:    NewCharacterRepo(db),
		Conversations: NewConversationRepo(db),
		Messages:      NewMessageRepo(db),
		Emotions:      NewEmotionRepo(db),
	}, nil
}

// OpenSQLite opens a sqlite database and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*Store, error) {
	store, err := Open(ctx, sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	if err := store.AutoMigrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// AutoMigrate creates or updates all application tables.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&userModel{},
		&characterModel{},
		&conversationModel{},
		&messageModel{},
		&emotionAnalysisModel{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// TableNames lists the tables managed by AutoMigrate.
func TableNames() []string {
	return []string{
		userModel{}.TableName(),
		characterModel{}.TableName(),
		conversationModel{}.TableName(),
		messageModel{}.TableName(),
		emotionAnalysisModel{}.TableName(),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
