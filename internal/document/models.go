package document

import (
	"errors"
	"math"
	"time"
)

const (
	// ContentTypePDF is the only content type accepted for uploads.
	ContentTypePDF = "application/pdf"
	// CategoryPapers namespaces past-paper blobs in the sink.
	CategoryPapers = "papers"
)

// Payload holds a document's bytes either inline or as a pointer into the
// blob sink. Exactly one representation is set.
type Payload struct {
	Data []byte
	Key  string
	URL  string
}

func InlinePayload(data []byte) Payload {
	return Payload{Data: data}
}

func RemotePayload(key, url string) Payload {
	return Payload{Key: key, URL: url}
}

func (p Payload) IsInline() bool { return len(p.Data) > 0 }

var ErrInvalidPayload = errors.New("payload must be exactly one of inline bytes or a storage key")

// Validate enforces the exactly-one rule.
func (p Payload) Validate() error {
	inline := len(p.Data) > 0
	remote := p.Key != ""
	if inline == remote {
		return ErrInvalidPayload
	}
	return nil
}

// Document is one uploaded PDF.
type Document struct {
	ID          string
	Subject     string
	FileName    string
	ContentType string
	FileSize    int64
	Payload     Payload
	PageCount   *int
	OwnerID     string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// Summary is the metadata-only view returned by list operations.
type Summary struct {
	ID          string
	Subject     string
	FileName    string
	ContentType string
	FileSize    int64
	PageCount   *int
	OwnerID     string
	CreatedAt   time.Time
	// URL is the blob URL for remote payloads and empty for inline ones.
	URL    string
	Inline bool
}

// Summarize drops the payload bytes.
func (d *Document) Summarize() Summary {
	return Summary{
		ID:          d.ID,
		Subject:     d.Subject,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		FileSize:    d.FileSize,
		PageCount:   d.PageCount,
		OwnerID:     d.OwnerID,
		CreatedAt:   d.CreatedAt,
		URL:         d.Payload.URL,
		Inline:      d.Payload.IsInline(),
	}
}

// Sort orders for List.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortSubjectAsc  = "subject_asc"
	SortSubjectDesc = "subject_desc"
)

// ListQuery filters and pages a listing.
type ListQuery struct {
	Subject  string
	Q        string
	Sort     string
	Page     int
	PageSize int
}

// Normalize clamps page to [1, math.MaxInt/PageSize], fills the page size
// and defaults the sort.
func (q ListQuery) Normalize(defaultPageSize int) ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize < 1 {
		q.PageSize = 12
	}
	if last := math.MaxInt / q.PageSize; q.Page > last {
		q.Page = last
	}
	switch q.Sort {
	case SortNewest, SortOldest, SortSubjectAsc, SortSubjectDesc:
	default:
		q.Sort = SortNewest
	}
	return q
}

// Offset returns the number of items to skip.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// ListResult is one page of summaries plus the total match count.
type ListResult struct {
	Items []Summary
	Total int64
}
