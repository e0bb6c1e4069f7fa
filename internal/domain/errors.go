package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrAlreadyCompleted  = errors.New("el documento ya está completado")
	ErrPersistence       = errors.New("fallo de persistencia")
	ErrInconsistency     = errors.New("inconsistencia entre saldo y suma de movimientos")
	// ErrHookVeto lo devuelve un hook de extensión para abortar la operación en curso.
	ErrHookVeto = errors.New("operación vetada por una extensión")
)

// Kind clasificación legible por máquina de un error de dominio.
type Kind string

const (
	KindNone              Kind = ""
	KindNotFound          Kind = "NOT_FOUND"
	KindValidationFailed  Kind = "VALIDATION_FAILED"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindAlreadyCompleted  Kind = "ALREADY_COMPLETED"
	KindPersistence       Kind = "PERSISTENCE_FAILURE"
	KindInconsistency     Kind = "INCONSISTENCY_DETECTED"
)

// KindOf devuelve el tipo de error. Cualquier error no reconocido se considera fallo de persistencia.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrForbidden), errors.Is(err, ErrHookVeto):
		return KindValidationFailed
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrAlreadyCompleted):
		return KindAlreadyCompleted
	case errors.Is(err, ErrInconsistency):
		return KindInconsistency
	default:
		return KindPersistence
	}
}

// MessageKey clave traducible para mostrar al usuario.
func MessageKey(k Kind) string {
	switch k {
	case KindNotFound:
		return "stock.error.not_found"
	case KindValidationFailed:
		return "stock.error.validation_failed"
	case KindInsufficientStock:
		return "stock.error.insufficient_stock"
	case KindAlreadyCompleted:
		return "stock.error.already_completed"
	case KindInconsistency:
		return "stock.error.inconsistency_detected"
	case KindPersistence:
		return "stock.error.persistence_failure"
	default:
		return ""
	}
}
