// Package model provides data models for the docseek service.
package model

import (
	"time"
)

// Document processing status values. A document moves from uploaded to
// processing, then to processed or failed. Chunks only exist for
// processed documents.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Document represents an uploaded file in the knowledge base.
type Document struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TenantID     string    `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	FileName     string    `json:"file_name" gorm:"type:varchar(255);not null"` // Stored name on disk
	OriginalName string    `json:"original_name" gorm:"type:varchar(255);not null"`
	MediaType    string    `json:"media_type" gorm:"type:varchar(128)"`
	Size         int64     `json:"size" gorm:"default:0"`
	StoragePath  string    `json:"storage_path,omitempty" gorm:"type:varchar(512)"`
	Status       string    `json:"status" gorm:"type:varchar(32);default:'uploaded';index"`
	ChunkNum     int       `json:"chunk_num" gorm:"default:0"`
	FailReason   string    `json:"fail_reason,omitempty" gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Image represents an uploaded image with its analysis results.
type Image struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TenantID     string    `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	FileName     string    `json:"file_name" gorm:"type:varchar(255);not null"`
	OriginalName string    `json:"original_name" gorm:"type:varchar(255);not null"`
	MediaType    string    `json:"media_type" gorm:"type:varchar(128)"`
	Size         int64     `json:"size" gorm:"default:0"`
	StoragePath  string    `json:"storage_path,omitempty" gorm:"type:varchar(512)"`
	Tags         string    `json:"tags" gorm:"type:text"`       // Comma-separated analysis tags
	Categories   string    `json:"categories" gorm:"type:text"` // Comma-separated categories
	Caption      string    `json:"caption" gorm:"type:text"`
	Status       string    `json:"status" gorm:"type:varchar(32);default:'uploaded';index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Image.
func (Image) TableName() string {
	return "images"
}

// QueryResult represents the answer to a knowledge base query.
type QueryResult struct {
	Answer  string        `json:"answer"`
	Sources []ChunkSource `json:"sources"`
	Images  []ImageSource `json:"images,omitempty"`
}

// ChunkSource identifies a retrieved chunk backing an answer.
type ChunkSource struct {
	FileID     string  `json:"file_id"`
	FileName   string  `json:"file_name"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// ImageSource identifies a retrieved image backing an answer.
type ImageSource struct {
	ImageID  string  `json:"image_id"`
	FileName string  `json:"file_name"`
	Caption  string  `json:"caption,omitempty"`
	Score    float64 `json:"score"`
}
