package model

import "time"

type FormSubmission struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type FormAttachment struct {
	ID           int64     `json:"id"`
	SubmissionID int64     `json:"submissionId"`
	FileName     string    `json:"fileName"`
	ObjectKey    string    `json:"-"`
	SizeBytes    int64     `json:"sizeBytes"`
	ContentType  string    `json:"contentType"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FormDetail is a submission with its attachments, each carrying a
// short-lived presigned download URL.
type FormDetail struct {
	FormSubmission
	Attachments []AttachmentLink `json:"attachments"`
}

type AttachmentLink struct {
	FormAttachment
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type FormCreateResponse struct {
	Status       string `json:"status"`
	SubmissionID int64  `json:"submissionId"`
	Attachments  int    `json:"attachments"`
}
