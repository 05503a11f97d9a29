package dto

type CreateCommentRequest struct {
	Body   string `json:"body" binding:"required,min=1,max=10000"`
	Rating int    `json:"rating" binding:"omitempty,min=1,max=5"`
}

type UpdateCommentRequest struct {
	Body   string `json:"body" binding:"required,min=1,max=10000"`
	Rating *int   `json:"rating" binding:"omitempty,min=1,max=5"`
}

type VoteRequest struct {
	Dir string `json:"dir" binding:"required,oneof=up down"`
}
