package models

import "time"

type Manufacturer struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	ThemePrimary   *string `json:"theme_primary"`
	ThemeSecondary *string `json:"theme_secondary"`
}

type Document struct {
	ID               int       `json:"id"`
	ManufacturerID   int       `json:"manufacturer_id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"original_filename"`
	StorageKey       string    `json:"storage_key"`
	UploadedBy       int       `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
	RevisionDate     *string   `json:"revision_date"`
	Tags             *string   `json:"tags"`
}

// DocumentUpdate holds editable document metadata; nil means unchanged.
type DocumentUpdate struct {
	Title        *string
	RevisionDate *string
	Tags         *string
}

type Section struct {
	ID           int    `json:"id"`
	DocumentID   int    `json:"document_id"`
	HeadingText  string `json:"heading_text"`
	HeadingLevel string `json:"heading_level"`
	PageStart    *int   `json:"page_start"`
	PageEnd      *int   `json:"page_end"`
	OrderIndex   int    `json:"order_index"`
}

type Figure struct {
	ID              int     `json:"id"`
	DocumentID      int     `json:"document_id"`
	SectionID       *int    `json:"section_id"`
	PageNumber      *int    `json:"page_number"`
	CaptionText     *string `json:"caption_text"`
	ImageStorageKey *string `json:"image_storage_key"`
	OrderIndex      int     `json:"order_index"`
}

// Outline is the client-extracted heading/figure structure sent with an upload.
// Figures reference sections by their index in Sections.
type Outline struct {
	Sections []OutlineSection `json:"sections"`
	Figures  []OutlineFigure  `json:"figures"`
}

type OutlineSection struct {
	HeadingText  string `json:"heading_text"`
	HeadingLevel string `json:"heading_level"`
	PageStart    *int   `json:"page_start"`
	PageEnd      *int   `json:"page_end"`
}

type OutlineFigure struct {
	SectionIndex *int    `json:"section_index"`
	PageNumber   *int    `json:"page_number"`
	CaptionText  *string `json:"caption_text"`
}
