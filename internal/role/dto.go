package role

// UpsertRoleDTO is the body of PUT /roles/{name}.
type UpsertRoleDTO struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

type DeleteRoleResponse struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}
