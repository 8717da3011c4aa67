package dto

// ErrorResponse cuerpo de error HTTP. Details lista cada error cuando la validación
// devuelve más de uno.
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail un error concreto de un ErrorResponse.
type ErrorDetail struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
