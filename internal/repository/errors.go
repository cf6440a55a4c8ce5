package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrOrderNumberConflict    = errors.New("order number already taken")
	ErrInvalidTransition      = errors.New("status transition not allowed")
	ErrPaymentRequired        = errors.New("payment creator returned no payment")
	ErrDuplicateExternalID    = errors.New("payment external id already recorded")
	ErrDuplicateAdminUsername = errors.New("admin username already taken")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
