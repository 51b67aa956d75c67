package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/crucial707/ndt-dochub/internal/apperr"
	"github.com/crucial707/ndt-dochub/internal/models"
)

// ManufacturerRepo reads manufacturer collections.
type ManufacturerRepo struct {
	DB *sql.DB
}

func NewManufacturerRepo(db *sql.DB) *ManufacturerRepo {
	return &ManufacturerRepo{DB: db}
}

// List returns all manufacturers ordered by id.
func (r *ManufacturerRepo) List(ctx context.Context) ([]models.Manufacturer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, theme_primary, theme_secondary FROM manufacturers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list manufacturers: %w", err)
	}
	defer rows.Close()

	list := []models.Manufacturer{}
	for rows.Next() {
		var m models.Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.ThemePrimary, &m.ThemeSecondary); err != nil {
			return nil, fmt.Errorf("scan manufacturer: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Exists reports whether a manufacturer with id exists.
func (r *ManufacturerRepo) Exists(ctx context.Context, id int) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM manufacturers WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check manufacturer %d: %w", id, err)
	}
	return ok, nil
}

// DocumentRepo persists documents and their extracted sections and figures.
type DocumentRepo struct {
	DB *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{DB: db}
}

const documentColumns = `id, manufacturer_id, title, original_filename, storage_key, uploaded_by, uploaded_at, revision_date, tags`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.ManufacturerID, &d.Title, &d.OriginalFilename, &d.StorageKey,
		&d.UploadedBy, &d.UploadedAt, &d.RevisionDate, &d.Tags)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByManufacturer returns a manufacturer's documents, newest upload first.
func (r *DocumentRepo) ListByManufacturer(ctx context.Context, manufacturerID int) ([]models.Document, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE manufacturer_id = $1 ORDER BY uploaded_at DESC`, manufacturerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	list := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

func (r *DocumentRepo) GetByID(ctx context.Context, id int) (*models.Document, error) {
	d, err := scanDocument(r.DB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return d, nil
}

// Create inserts doc with its outline in one transaction and fills in doc.ID
// and doc.UploadedAt. It returns the number of sections and figures written.
func (r *DocumentRepo) Create(ctx context.Context, doc *models.Document, outline models.Outline) (sections, figures int, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin upload: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (manufacturer_id, title, original_filename, storage_key, uploaded_by, revision_date, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at`,
		doc.ManufacturerID, doc.Title, doc.OriginalFilename, doc.StorageKey, doc.UploadedBy, doc.RevisionDate, doc.Tags,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return 0, 0, fmt.Errorf("insert document: %w", err)
	}

	sectionIDs := make([]int, len(outline.Sections))
	for i, s := range outline.Sections {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO sections (document_id, heading_text, heading_level, page_start, page_end, order_index)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			doc.ID, s.HeadingText, s.HeadingLevel, s.PageStart, s.PageEnd, i,
		).Scan(&sectionIDs[i])
		if err != nil {
			return 0, 0, fmt.Errorf("insert section %d: %w", i, err)
		}
	}

	for i, f := range outline.Figures {
		var sectionID *int
		if f.SectionIndex != nil && *f.SectionIndex >= 0 && *f.SectionIndex < len(sectionIDs) {
			sectionID = &sectionIDs[*f.SectionIndex]
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO figures (document_id, section_id, page_number, caption_text, order_index)
			VALUES ($1, $2, $3, $4, $5)`,
			doc.ID, sectionID, f.PageNumber, f.CaptionText, i,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert figure %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit upload: %w", err)
	}
	return len(outline.Sections), len(outline.Figures), nil
}

// Update applies the non-nil fields of upd and returns the updated document.
func (r *DocumentRepo) Update(ctx context.Context, id int, upd models.DocumentUpdate) (*models.Document, error) {
	var sets []string
	var args []any
	add := func(col string, v string) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.RevisionDate != nil {
		add("revision_date", *upd.RevisionDate)
	}
	if upd.Tags != nil {
		add("tags", *upd.Tags)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := `UPDATE documents SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + documentColumns

	d, err := scanDocument(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document not found")
		}
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	return d, nil
}

// Delete removes the document (sections and figures cascade) and returns its storage key.
func (r *DocumentRepo) Delete(ctx context.Context, id int) (string, error) {
	var key string
	err := r.DB.QueryRowContext(ctx, `DELETE FROM documents WHERE id = $1 RETURNING storage_key`, id).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("document not found")
		}
		return "", fmt.Errorf("delete document %d: %w", id, err)
	}
	return key, nil
}

// ListSections returns a document's sections by order_index.
func (r *DocumentRepo) ListSections(ctx context.Context, documentID int) ([]models.Section, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, document_id, heading_text, heading_level, page_start, page_end, order_index
		FROM sections WHERE document_id = $1 ORDER BY order_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	list := []models.Section{}
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.HeadingText, &s.HeadingLevel, &s.PageStart, &s.PageEnd, &s.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListFigures returns a section's figures by order_index.
func (r *DocumentRepo) ListFigures(ctx context.Context, sectionID int) ([]models.Figure, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, document_id, section_id, page_number, caption_text, image_storage_key, order_index
		FROM figures WHERE section_id = $1 ORDER BY order_index`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list figures: %w", err)
	}
	defer rows.Close()

	list := []models.Figure{}
	for rows.Next() {
		var f models.Figure
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.SectionID, &f.PageNumber, &f.CaptionText, &f.ImageStorageKey, &f.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan figure: %w", err)
		}
		list = append(list, f)
	}
	return list, rows.Err()
}
