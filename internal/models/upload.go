package models

type UploadResult struct {
	CDNURL string `json:"cdnUrl" validate:"required"`
}

type VideoUploadResult struct {
	Video     UploadResult `json:"video"`
	Thumbnail UploadResult `json:"thumbnail"`
}
