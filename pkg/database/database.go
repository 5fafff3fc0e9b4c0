package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"librarydesk/pkg/models"
	"librarydesk/pkg/session"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects the local session store. sqlite is the default; postgres is
// for gateways that share one session table.
func Open(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN(driver)
	}
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported session driver %q", driver)
	}

	log.Printf("Opening session store: driver=%s", driverName(driver))
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&models.SessionRecord{}); err != nil {
		return nil, fmt.Errorf("session store migration failed: %w", err)
	}
	return db, nil
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}

// DefaultDSN is used when the config names a driver but no DSN. postgres
// settings come from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD and DB_NAME.
func DefaultDSN(driver string) string {
	if driver == "postgres" {
		return postgresDSN()
	}
	return "librarydesk-session.db"
}

func postgresDSN() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "program")
	password := getEnv("DB_PASSWORD", "test")
	dbname := getEnv("DB_NAME", "librarydesk")

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GormStore keeps at most one session row.
type GormStore struct {
	db *gorm.DB
}

var _ session.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load() (*models.User, error) {
	var rec models.SessionRecord
	err := s.db.Order("updated_at desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &models.User{
		ID:    rec.UserID,
		Email: rec.Email,
		Role:  models.Role(rec.Role),
		Token: rec.Token,
	}, nil
}

func (s *GormStore) Save(user models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.SessionRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.SessionRecord{
			UserID: user.ID,
			Email:  user.Email,
			Role:   string(user.Role),
			Token:  user.Token,
		}).Error
	})
}

func (s *GormStore) Clear() error {
	return s.db.Where("1 = 1").Delete(&models.SessionRecord{}).Error
}
