package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// ErrDuplicate is returned by stores when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate value entered")

// Page is one rendered page of a magazine. ImageURL points at the hosting
// provider's on-the-fly PDF-page transformation; PublicID is a virtual
// reference derived from the original file.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	ImageURL   string `json:"imageUrl"`
	PublicID   string `json:"publicId"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Magazine is the persistent record for one uploaded PDF.
//
// Status starts at processing when the record is created and moves exactly
// once to ready or failed. Pages stays empty until the record is ready;
// TotalPages mirrors len(Pages) from that point on.
type Magazine struct {
	ID           string     `json:"id"`
	ShareToken   string     `json:"shareId"`
	Name         string     `json:"name"`
	PdfURL       string     `json:"pdfUrl,omitempty"`
	PdfPublicID  string     `json:"pdfPublicId,omitempty"`
	Pages        []Page     `json:"pages"`
	TotalPages   int        `json:"totalPages"`
	Config       FlipConfig `json:"config"`
	Status       Status     `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// ShareURL is computed from the public base URL; never persisted.
	ShareURL string `json:"shareUrl,omitempty"`
}
