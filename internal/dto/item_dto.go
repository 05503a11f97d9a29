package dto

type CreateItemRequest struct {
	Title       string   `json:"title" binding:"required,min=2,max=200"`
	Description string   `json:"description" binding:"max=10000"`
	Tags        []string `json:"tags" binding:"max=10,dive,min=1,max=50"`
}

type UpdateItemRequest struct {
	Title       string   `json:"title" binding:"omitempty,min=2,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=10000"`
	Tags        []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=50"`
}
