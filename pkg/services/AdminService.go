package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
	"github.com/rfberaldo/sqlz"
	"golang.org/x/crypto/bcrypt"
)

type AdminServicer interface {
	Authenticate(email, password string) (*models.Admin, error)
	GetByID(id string) (*models.Admin, error)
	EnsureAdmin(email, name, password string) error
}

type AdminServiceConfig struct {
	DB *sqlz.DB
}

type AdminService struct {
	db *sqlz.DB
}

func NewAdminService(config AdminServiceConfig) AdminService {
	return AdminService{
		db: config.DB,
	}
}

/*
Authenticate returns the admin for email when password matches.
Unknown emails and wrong passwords both yield ErrInvalidCredentials.
*/
func (s AdminService) Authenticate(email, password string) (*models.Admin, error) {
	var (
		err   error
		admin *models.Admin
	)

	if admin, err = s.getByEmail(email); err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			return nil, models.ErrInvalidCredentials
		}

		return nil, err
	}

	if !CheckPassword(admin.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	return admin, nil
}

func (s AdminService) GetByID(id string) (*models.Admin, error) {
	result := &models.Admin{}

	sql := `
SELECT
   a.id
   , a.created_at
   , a.updated_at
   , a.deleted_at
   , a.email
   , a.name
   , a.password_hash
FROM admins AS a
WHERE 1=1
   AND a.deleted_at IS NULL
   AND a.id=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.QueryRow(ctx, result, sql, id); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrAdminNotFound
		}

		return nil, fmt.Errorf("error querying for admin %s: %w", id, err)
	}

	return result, nil
}

/*
EnsureAdmin creates the bootstrap administrator when no admin with that
email exists yet.
*/
func (s AdminService) EnsureAdmin(email, name, password string) error {
	var (
		err  error
		hash string
	)

	if _, err = s.getByEmail(email); err == nil {
		return nil
	}

	if !errors.Is(err, models.ErrAdminNotFound) {
		return err
	}

	if hash, err = HashPassword(password); err != nil {
		return err
	}

	now := time.Now().UTC()

	sql := `
INSERT INTO admins (id, created_at, updated_at, email, name, password_hash)
VALUES (?, ?, ?, ?, ?, ?)
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err = s.db.Exec(ctx, sql, uuid.NewString(), now, now, normalizeEmail(email), name, hash); err != nil {
		return fmt.Errorf("error inserting admin %s: %w", email, err)
	}

	return nil
}

func (s AdminService) getByEmail(email string) (*models.Admin, error) {
	result := &models.Admin{}

	sql := `
SELECT
   a.id
   , a.created_at
   , a.updated_at
   , a.deleted_at
   , a.email
   , a.name
   , a.password_hash
FROM admins AS a
WHERE 1=1
   AND a.deleted_at IS NULL
   AND a.email=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.QueryRow(ctx, result, sql, normalizeEmail(email)); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrAdminNotFound
		}

		return nil, fmt.Errorf("error querying for admin by email: %w", err)
	}

	return result, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
