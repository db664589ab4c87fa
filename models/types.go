// ABOUTME: Data models for field reports
// ABOUTME: Defines Report and Photo plus the logical field names a report carries
package models

import (
	"errors"
	"strings"
)

type Photo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

// Size returns the photo's byte length.
func (p Photo) Size() int64 {
	return int64(len(p.Data))
}

// Report is one field submission. CapturedOn is the wall-clock time the user entered,
// interpreted in the operational time zone, e.g. "2024-03-05T09:07".
type Report struct {
	Title      string  `json:"title"`
	Category   string  `json:"category,omitempty"`
	Location   string  `json:"location,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	CapturedOn string  `json:"captured_on,omitempty"`
	Photos     []Photo `json:"photos"`
}

// Logical field names.
const (
	FieldTitle      = "title"
	FieldCategory   = "category"
	FieldLocation   = "location"
	FieldNotes      = "notes"
	FieldCapturedOn = "captured_on"
	FieldPhotos     = "photos"
)

var (
	ErrMissingTitle = errors.New("report title is required")
	ErrNoPhotos     = errors.New("report needs at least one photo")
	ErrEmptyPhoto   = errors.New("photo has no content")
)

// Validate checks the fields a submission cannot do without.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if len(r.Photos) == 0 {
		return ErrNoPhotos
	}
	for _, p := range r.Photos {
		if len(p.Data) == 0 {
			return errors.Join(ErrEmptyPhoto, errors.New(p.Name))
		}
	}
	return nil
}
