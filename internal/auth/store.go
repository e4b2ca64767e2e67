package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidUsername = errors.New("invalid username")
var ErrInvalidPassword = errors.New("invalid password")

const maxUsernameLength = 50

// Store holds accounts. Passwords are kept only as bcrypt hashes.
type Store interface {
	Create(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) error
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:50;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func validate(username, password string) error {
	// Both travel as single tokens on a LOGIN line
	n := utf8.RuneCountInString(username)
	if n == 0 || n > maxUsernameLength || strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	if password == "" || len(password) > 72 || strings.IndexFunc(password, unicode.IsSpace) >= 0 {
		return ErrInvalidPassword
	}
	return nil
}

func hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func compare(hashed, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GormStore keeps users in Postgres.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore connects to dsn and migrates the users table.
func OpenGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}
	h, err := hash(password)
	if err != nil {
		return err
	}

	user := User{Username: Normalize(username), PasswordHash: h}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) Verify(ctx context.Context, username, password string) error {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", Normalize(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	return compare(user.PasswordHash, password)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MemoryStore is a Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]string)}
}

func (s *MemoryStore) Create(_ context.Context, username, password string) error {
	if err := validate(username, password); err != nil {
		return err
	}
	h, err := hash(password)
	if err != nil {
		return err
	}

	key := Normalize(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return ErrUserExists
	}
	s.users[key] = h
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, username, password string) error {
	s.mu.RLock()
	h, ok := s.users[Normalize(username)]
	s.mu.RUnlock()
	if !ok {
		return ErrUserNotFound
	}
	return compare(h, password)
}
