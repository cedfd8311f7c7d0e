package httpx

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes we translate.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// ValidationError is a 400 carrying per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func BadRequest(msg string) error { return fiber.NewError(fiber.StatusBadRequest, msg) }

func NotFound(msg string) error { return fiber.NewError(fiber.StatusNotFound, msg) }

func Conflict(msg string) error { return fiber.NewError(fiber.StatusConflict, msg) }

func Internal(msg string) error { return fiber.NewError(fiber.StatusInternalServerError, msg) }

func Unavailable(msg string) error { return fiber.NewError(fiber.StatusServiceUnavailable, msg) }

// DBError maps a data-store error to an HTTP error. notFound is used for
// gorm.ErrRecordNotFound, fallback for anything unclassified.
func DBError(err error, notFound, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return BadRequest("referenced record does not exist or is still in use")
		case pgUniqueViolation:
			return Conflict("a record with the same value already exists")
		case pgCheckViolation, pgNotNullViolation:
			return BadRequest("record violates a data constraint")
		}
	}

	if IsUnavailable(err) {
		return Unavailable("database is unavailable, try again later")
	}
	return Internal(fallback)
}

// IsUnavailable reports whether err means the data store could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"no such host",
		"failed to connect",
		"connection reset",
		"server closed the connection",
		"i/o timeout",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
