package dto

type UpdatePreferenceRequest struct {
	TagPeerNewItem *bool `json:"tag_peer_new_item"`
	CommentUpvoted *bool `json:"comment_upvoted"`
	ReportEvents   *bool `json:"report_events"`
}
