package tradeimport

import "fmt"

type CoercionError struct {
	Field   Field
	Column  string
	Message string
}

func (e *CoercionError) Error() string {
	return e.Message
}

func missingColumn(f Field, col string) *CoercionError {
	return &CoercionError{
		Field:   f,
		Column:  col,
		Message: fmt.Sprintf("Column %q mapped to %s is missing from the file.", col, f),
	}
}

func badCell(f Field, col, code string) *CoercionError {
	return &CoercionError{Field: f, Column: col, Message: fieldMessage(f, code)}
}

type FieldError struct {
	Field Field
	Code  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func (e *FieldError) Message() string {
	return fieldMessage(e.Field, e.Code)
}

type Stage string

const (
	StageCoercion    Stage = "coercion"
	StageField       Stage = "field"
	StageBusiness    Stage = "business"
	StagePersistence Stage = "persistence"
)

// ImportError is the single failure an aborted import reports.
type ImportError struct {
	Row   int
	Stage Stage
	Err   error
}

func (e *ImportError) Error() string {
	return FormatRowError(e.Row, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
