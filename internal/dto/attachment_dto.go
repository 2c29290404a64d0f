package dto

type AttachmentRef struct {
	Id          string `json:"id"`
	ContentType string `json:"content_type"`
}

type UploadAttachmentResponse struct {
	Attachments []AttachmentRef `json:"attachments"`
}
