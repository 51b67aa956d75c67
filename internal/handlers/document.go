package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/crucial707/ndt-dochub/internal/repo"
	"github.com/crucial707/ndt-dochub/internal/storage"
)

// pdfMagic is the leading byte sequence of every PDF file.
var pdfMagic = []byte("%PDF-")

// DefaultMaxUploadBytes caps uploads when DocumentHandler.MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 64 << 20

// ==========================
// DocumentHandler (manufacturers, documents, sections, figures)
// ==========================
type DocumentHandler struct {
	Manufacturers  *repo.ManufacturerRepo
	Documents      *repo.DocumentRepo
	Blobs          storage.BlobStore
	Audit          *audit.Logger
	MaxUploadBytes int64
}

// ==========================
// List Manufacturers (public, drives UI theming)
// ==========================
func (h *DocumentHandler) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Manufacturers.List(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ==========================
// List Documents of a Manufacturer
// ==========================
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	mid, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid manufacturer id", http.StatusBadRequest)
		return
	}
	if !h.manufacturerExists(w, r, mid) {
		return
	}
	docs, err := h.Documents.ListByManufacturer(r.Context(), mid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.ViewDocList, audit.Metadata{
		"manufacturer_id": mid,
		"count":           len(docs),
	})
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) manufacturerExists(w http.ResponseWriter, r *http.Request, id int) bool {
	exists, err := h.Manufacturers.Exists(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return false
	}
	if !exists {
		JSONError(w, "manufacturer not found", http.StatusNotFound)
		return false
	}
	return true
}

// ==========================
// Upload Document (multipart: file, title, revision_date, tags, outline)
// ==========================
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	mid, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid manufacturer id", http.StatusBadRequest)
		return
	}
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			JSONError(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields := make(map[string]string)
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		fields["title"] = "required"
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fields["file"] = "required"
	} else {
		defer file.Close()
		if !strings.EqualFold(pathExt(header.Filename), ".pdf") {
			fields["file"] = "must be a .pdf file"
		}
	}
	var outline models.Outline
	if raw := r.FormValue("outline"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &outline); err != nil {
			fields["outline"] = "must be a JSON object with sections and figures"
		}
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(file, head); err != nil || !bytes.Equal(head, pdfMagic) {
		JSONValidationError(w, "validation failed", map[string]string{"file": "not a PDF document"}, http.StatusBadRequest)
		return
	}
	if !h.manufacturerExists(w, r, mid) {
		return
	}

	key := storage.DocumentKey(header.Filename)
	if err := h.Blobs.Put(r.Context(), key, io.MultiReader(bytes.NewReader(head), file), "application/pdf"); err != nil {
		WriteError(w, r, err)
		return
	}

	p := auth.PrincipalFrom(r.Context())
	doc := &models.Document{
		ManufacturerID:   mid,
		Title:            title,
		OriginalFilename: header.Filename,
		StorageKey:       key,
		UploadedBy:       p.ID,
		RevisionDate:     optionalForm(r, "revision_date"),
		Tags:             optionalForm(r, "tags"),
	}
	sections, figures, err := h.Documents.Create(r.Context(), doc, outline)
	if err != nil {
		if delErr := h.Blobs.Delete(r.Context(), key); delErr != nil {
			slog.Warn("orphaned upload", "storage_key", key, "error", delErr)
		}
		WriteError(w, r, err)
		return
	}

	h.Audit.Record(r.Context(), p, audit.UploadDocument, audit.Metadata{
		"document_id":     doc.ID,
		"manufacturer_id": mid,
		"title":           doc.Title,
		"sections":        sections,
		"figures":         figures,
	})
	writeJSON(w, http.StatusCreated, doc)
}

func pathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func optionalForm(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// ==========================
// Update Document metadata
// ==========================
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var input struct {
		Title        *string `json:"title"`
		RevisionDate *string `json:"revision_date"`
		Tags         *string `json:"tags"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		JSONValidationError(w, "validation failed", map[string]string{"title": "must not be empty"}, http.StatusBadRequest)
		return
	}

	changed := []string{}
	if input.Title != nil {
		changed = append(changed, "title")
	}
	if input.RevisionDate != nil {
		changed = append(changed, "revision_date")
	}
	if input.Tags != nil {
		changed = append(changed, "tags")
	}
	if len(changed) == 0 {
		JSONError(w, "no valid fields to update", http.StatusBadRequest)
		return
	}

	doc, err := h.Documents.Update(r.Context(), id, models.DocumentUpdate{
		Title:        input.Title,
		RevisionDate: input.RevisionDate,
		Tags:         input.Tags,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.UpdateDocument, audit.Metadata{
		"document_id": id,
		"fields":      changed,
	})
	writeJSON(w, http.StatusOK, doc)
}

// ==========================
// Delete Document (sections and figures cascade; blob removed best-effort)
// ==========================
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	key, err := h.Documents.Delete(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.Blobs.Delete(r.Context(), key); err != nil {
		slog.Warn("delete blob failed", "document_id", id, "storage_key", key, "error", err)
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.DeleteDocument, audit.Metadata{
		"document_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ==========================
// List Sections of a Document
// ==========================
func (h *DocumentHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	sections, err := h.Documents.ListSections(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.ViewSectionList, audit.Metadata{
		"document_id": id,
		"count":       len(sections),
	})
	writeJSON(w, http.StatusOK, sections)
}

// ==========================
// List Figures of a Section
// ==========================
func (h *DocumentHandler) ListFigures(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid section id", http.StatusBadRequest)
		return
	}
	figures, err := h.Documents.ListFigures(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.ViewSection, audit.Metadata{
		"section_id": id,
		"figures":    len(figures),
	})
	writeJSON(w, http.StatusOK, figures)
}

// ==========================
// Download PDF
// ==========================
func (h *DocumentHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	doc, err := h.Documents.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rc, err := h.Blobs.Get(r.Context(), doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			JSONError(w, "file not found", http.StatusNotFound)
			return
		}
		WriteError(w, r, err)
		return
	}
	defer rc.Close()

	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.ViewDocument, audit.Metadata{
		"document_id": doc.ID,
		"title":       doc.Title,
	})
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": storage.SanitizeName(doc.OriginalFilename),
	}))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("pdf stream interrupted", "document_id", doc.ID, "error", err)
	}
}
