package models

import "time"

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusSigned     DocumentStatus = "signed"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusRejected   DocumentStatus = "rejected"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// ParseDocumentStatus validates s against the statuses staff may assign.
func ParseDocumentStatus(s string) (DocumentStatus, bool) {
	switch st := DocumentStatus(s); st {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusSigned,
		DocumentStatusCompleted, DocumentStatusRejected, DocumentStatusFailed:
		return st, true
	}
	return "", false
}

// Document is the server-side record of one uploaded file.
type Document struct {
	ID             string         `json:"_id"`
	UserID         string         `json:"userId"`
	TransactionID  string         `json:"transactionId"`
	DocumentType   string         `json:"documentType"`
	FileName       string         `json:"fileName"`
	FileSize       int64          `json:"fileSize"`
	MimeType       string         `json:"mimeType"`
	Status         DocumentStatus `json:"documentStatus"`
	SignedFileName string         `json:"signedFileName,omitempty"`
	UploadedAt     time.Time      `json:"uploadedAt"`
	SignedAt       *time.Time     `json:"signedAt,omitempty"`
}

// DocumentUpload is one multipart upload to /api/documents/upload.
type DocumentUpload struct {
	UserID        string
	TransactionID string
	DocumentType  string
	FileName      string
	ContentType   string
	Content       []byte
}
