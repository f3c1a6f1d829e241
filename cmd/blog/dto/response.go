package dto

// ErrorResponseDTO는 공통 에러 응답 형식이다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"not_found"`
}

type MessageResponseDTO struct {
	Message string `json:"message" example:"accepted"`
}
