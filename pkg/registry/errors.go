package registry

// Error codes.
const (
	CodeInvalidName      = "INVALID_NAME"
	CodeReservedName     = "RESERVED_NAME"
	CodeFunctionNotFound = "FUNCTION_NOT_FOUND"
)

// Sentinel errors for use with errors.Is.
var (
	ErrInvalidName      = &RegistryError{Code: CodeInvalidName}
	ErrReservedName     = &RegistryError{Code: CodeReservedName}
	ErrFunctionNotFound = &RegistryError{Code: CodeFunctionNotFound}
)

// RegistryError is a structured error from the registry.
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *RegistryError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any RegistryError with the same code.
func (e *RegistryError) Is(target error) bool {
	t, ok := target.(*RegistryError)
	return ok && t.Code == e.Code
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}
