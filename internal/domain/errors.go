package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Cada LedgerError se resuelve
// a uno de estos sentinelas con errors.Is.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrConflict          = errors.New("conflicto de concurrencia")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInfrastructure    = errors.New("error interno")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

// ErrorKind clasifica los fallos que el ledger reporta a sus llamadores.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindInsufficientStock   ErrorKind = "INSUFFICIENT_STOCK"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
	KindInfrastructure      ErrorKind = "INTERNAL"
)

// LedgerError es el error tipado que devuelven las operaciones del ledger.
type LedgerError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Err != nil && e.Kind != KindInfrastructure {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap permite errors.Is contra el sentinela del tipo y contra la causa.
func (e *LedgerError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrInvalidInput
	case KindInsufficientStock:
		return ErrInsufficientStock
	case KindNotFound:
		return ErrNotFound
	case KindConcurrencyConflict:
		return ErrConflict
	default:
		return ErrInfrastructure
	}
}

// Validation crea un error de validación.
func Validation(format string, args ...any) *LedgerError {
	return &LedgerError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound crea un error de recurso inexistente.
func NotFound(resource, id string) *LedgerError {
	return &LedgerError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s no encontrado", resource, id)}
}

// InsufficientStock reporta la cantidad solicitada frente a la disponible.
func InsufficientStock(key fmt.Stringer, requested, available fmt.Stringer) *LedgerError {
	return &LedgerError{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("stock insuficiente en %s: solicitado %s, disponible %s", key, requested, available),
	}
}

// Conflict envuelve un fallo de concurrencia (bloqueo, serialización, inserción simultánea).
func Conflict(err error) *LedgerError {
	return &LedgerError{Kind: KindConcurrencyConflict, Message: "la operación chocó con otra transacción, reintente", Err: err}
}

// Infrastructure oculta la causa detrás de un mensaje genérico; la causa queda en Err para el log.
func Infrastructure(err error) *LedgerError {
	return &LedgerError{Kind: KindInfrastructure, Message: "error interno del ledger", Err: err}
}

// KindOf devuelve el tipo de un error; los errores no tipados cuentan como infraestructura.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConcurrencyConflict
	}
	return KindInfrastructure
}

// Result es la forma de respuesta que consumen los adaptadores de documentos.
type Result struct {
	Success bool
	Code    string
	Message string
}

// ResultOf traduce un error (o nil) a Result. Nunca expone la causa de un error de infraestructura.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	kind := KindOf(err)
	var le *LedgerError
	if errors.As(err, &le) {
		return Result{Code: string(kind), Message: le.Message}
	}
	if kind == KindInfrastructure {
		return Result{Code: string(kind), Message: "error interno del ledger"}
	}
	return Result{Code: string(kind), Message: err.Error()}
}
