package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que distingue el libro.
const (
	codeUniqueViolation  = "23505"
	codeSerialization    = "40001"
	codeDeadlock         = "40P01"
	codeLockNotAvailable = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isConcurrencyConflict serialización, deadlock o bloqueo no disponible: la operación completa puede reintentarse.
func isConcurrencyConflict(err error) bool {
	switch pgCode(err) {
	case codeSerialization, codeDeadlock, codeLockNotAvailable:
		return true
	}
	return false
}

// persistenceError envuelve un fallo de BD como domain.ErrPersistence conservando el original.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}
