// internal/users/dto.go
package users

// DTOs for API requests/responses

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=30,alphanum"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Age         int    `json:"age" validate:"required,gte=18,lte=100"`
	Gender      string `json:"gender" validate:"required,min=2,max=32"`
	Orientation string `json:"orientation" validate:"required,min=2,max=32"`
}
