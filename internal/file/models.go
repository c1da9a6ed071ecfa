package file

import (
	"time"

	"github.com/google/uuid"
)

// StoredFile is the metadata record for one uploaded file.
type StoredFile struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"-"`
	OriginalFilename string    `json:"filename"`
	SizeBytes        int64     `json:"size"`
	ObjectName       string    `json:"-"`
	UploadedAt       time.Time `json:"upload_date"`
}

// Listing is one page of an account's files plus the total for pagination.
type Listing struct {
	Files      []StoredFile `json:"files"`
	TotalFiles int64        `json:"total_files"`
}
