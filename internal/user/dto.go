package user

type CreateUserDTO struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"max=100"`
	EmployeeCode string `json:"employee_code" validate:"max=50"`
	Role         string `json:"role" validate:"required"`
}

// UpdateUserDTO changes only the fields that are present.
type UpdateUserDTO struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,max=100"`
	EmployeeCode *string `json:"employee_code" validate:"omitempty,max=50"`
	Role         *string `json:"role" validate:"omitempty,min=1"`
	IsActive     *bool   `json:"is_active"`
	Password     *string `json:"password" validate:"omitempty,min=8"`
}

type UsersResponse struct {
	Users []*User `json:"users"`
}
