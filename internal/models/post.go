package models

const (
	AuditStatusPending  = "pending"
	AuditStatusApproved = "approved"
	AuditStatusRejected = "rejected"
)

type Post struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Description  *string  `json:"description,omitempty"`
	Date         string   `json:"date,omitempty"`
	CoverImage   string   `json:"coverImage,omitempty"`
	Images       []string `json:"images"`
	Video        string   `json:"video,omitempty"`
	QuickTag     int      `json:"quickTag"`
	AuditStatus  string   `json:"auditStatus,omitempty"`
	RejectReason *string  `json:"rejectReason,omitempty"`
	Author       *Author  `json:"author,omitempty"`
	IsFavorited  bool     `json:"isFavorited,omitempty"`
}

// PostInput is the payload to publish a new post.
// A post needs at least one image or a video.
type PostInput struct {
	Title      string   `json:"title" validate:"required,max=100"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"coverImage,omitempty" validate:"omitempty,url"`
	Images     []string `json:"images" validate:"max=9,dive,url"`
	Video      string   `json:"video,omitempty" validate:"omitempty,url"`
	QuickTag   int      `json:"quickTag"`
}

// PostPatch updates selected fields of a post; nil fields are not sent
type PostPatch struct {
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	CoverImage *string  `json:"coverImage,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
