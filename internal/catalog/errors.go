package catalog

import "errors"

// User-facing messages.
const (
	MsgProductNotFound  = "Producto no encontrado"
	MsgInvalidProductID = "ID de producto inválido"
	MsgIncompleteSale   = "Datos de producto incompletos para la venta."
	MsgInvalidQuantity  = "Cantidad inválida para la venta."
	MsgSaleRecorded     = "Venta registrada con éxito"

	MsgSearchFailed    = "Error interno del servidor al buscar productos."
	MsgGetFailed       = "Error interno del servidor."
	MsgRecordFailed    = "Error interno del servidor al registrar la venta."
	MsgListSalesFailed = "Error interno del servidor al obtener ventas."
)

var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries the message shown to the caller on a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Message: msg} }
