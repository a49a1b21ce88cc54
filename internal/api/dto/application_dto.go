package dto

// UpdateStatusRequest payload for the admin status update.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// PageMeta describes the pagination block of the admin listing response.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}
