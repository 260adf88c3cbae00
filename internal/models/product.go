package models

import "time"

// ExtractionStatus enumerates the lifecycle of a product's last extraction run.
type ExtractionStatus string

const (
	ExtractionPending    ExtractionStatus = "pending"
	ExtractionInProgress ExtractionStatus = "in_progress"
	ExtractionSuccess    ExtractionStatus = "success"
	ExtractionFailed     ExtractionStatus = "failed"
)

// Product represents a trackable SaaS offering. The pipeline treats it as
// read-only except for last_extracted_at and extraction_status, which the
// scheduler updates after each run.
type Product struct {
	ID               string           `db:"id" json:"id"`
	Slug             string           `db:"slug" json:"slug"`
	Name             string           `db:"name" json:"name"`
	Description      string           `db:"description" json:"description"`
	WebsiteURL       string           `db:"website_url" json:"websiteUrl"`
	SourceURL        string           `db:"source_url" json:"sourceUrl"`
	Category         string           `db:"category" json:"category"`
	LogoURL          string           `db:"logo_url" json:"logoUrl,omitempty"`
	IsActive         bool             `db:"is_active" json:"isActive"`
	LastExtractedAt  *time.Time       `db:"last_extracted_at" json:"lastExtractedAt,omitempty"`
	ExtractionStatus ExtractionStatus `db:"extraction_status" json:"extractionStatus"`
	CreatedAt        time.Time        `db:"created_at" json:"-"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}
