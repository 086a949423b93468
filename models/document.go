package models

import "time"

// Document represents an ingested file or crawled URL
type Document struct {
	ID           string     `bson:"_id" json:"id"`
	Filename     string     `bson:"filename" json:"filename"`
	OriginalName string     `bson:"original_name" json:"originalName"`
	MimeType     string     `bson:"mime_type" json:"mimeType"`
	Size         int64      `bson:"size" json:"size"`
	SourceURL    string     `bson:"source_url,omitempty" json:"sourceUrl,omitempty"`
	Content      string     `bson:"content,omitempty" json:"content,omitempty"`
	Status       string     `bson:"status" json:"status"` // processing, completed, failed
	ErrorMessage string     `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
	UploadedAt   time.Time  `bson:"uploaded_at" json:"uploadedAt"`
	ProcessedAt  *time.Time `bson:"processed_at,omitempty" json:"processedAt,omitempty"`
}

// Document status constants
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Chunk is a vectorized text segment of a document
type Chunk struct {
	ID         string                 `bson:"_id" json:"id"`
	DocumentID string                 `bson:"document_id" json:"documentId"`
	Content    string                 `bson:"content" json:"content"`
	Vector     []float32              `bson:"vector" json:"-"`
	Metadata   map[string]interface{} `bson:"metadata" json:"metadata"`
	CreatedAt  time.Time              `bson:"created_at" json:"createdAt"`
}

// Chunk metadata keys
const (
	MetaChunkIndex  = "chunkIndex"
	MetaTotalChunks = "totalChunks"
	MetaSource      = "source"
)

// ChunkIndex returns the original sequence index stored in metadata, or -1
func (c *Chunk) ChunkIndex() int {
	switch v := c.Metadata[MetaChunkIndex].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return -1
}

// CandidateVector exposes the vector for similarity ranking
func (c *Chunk) CandidateVector() []float32 {
	return c.Vector
}
