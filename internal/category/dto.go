package category

type CategoryResponse struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsFuel        bool   `json:"is_fuel"`
	RequiresPhoto bool   `json:"requires_photo"`
}

type CategoriesResponse struct {
	Categories []CategoryResponse `json:"categories"`
}
