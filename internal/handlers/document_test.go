package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/ndt-dochub/internal/repo"
	"github.com/crucial707/ndt-dochub/internal/storage"
)

func newDocumentHandler(t *testing.T, db *sql.DB) (*DocumentHandler, *storage.LocalStore) {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return &DocumentHandler{
		Manufacturers: repo.NewManufacturerRepo(db),
		Documents:     repo.NewDocumentRepo(db),
		Blobs:         blobs,
		Audit:         newTestAudit(db),
	}, blobs
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func uploadRequest(body *bytes.Buffer, contentType string) *http.Request {
	req := requestWithChiURLParams("POST", "/manufacturers/1/documents", body.Bytes(), map[string]string{"id": "1"})
	req.Header.Set("Content-Type", contentType)
	return as(req, testAdmin, "t")
}

func TestDocumentHandler_Upload(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(1, "737 NDT Manual", "737 manual.PDF", sqlmock.AnyArg(), 1, "2026-01", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uploaded_at"}).AddRow(42, time.Now()))
	mock.ExpectQuery(`INSERT INTO sections`).
		WithArgs(42, "Ultrasonic", "h1", 1, nil, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO figures`).
		WithArgs(42, 7, 2, "Probe setup", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(1, "admin", "UPLOAD_DOCUMENT", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	outline := `{"sections":[{"heading_text":"Ultrasonic","heading_level":"h1","page_start":1}],` +
		`"figures":[{"section_index":0,"page_number":2,"caption_text":"Probe setup"}]}`
	body, ct := multipartUpload(t, "737 manual.PDF", []byte("%PDF-1.4\nbody"), map[string]string{
		"title":         "737 NDT Manual",
		"revision_date": "2026-01",
		"outline":       outline,
	})

	h, blobs := newDocumentHandler(t, db)
	rr := httptest.NewRecorder()
	h.UploadDocument(rr, uploadRequest(body, ct))

	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var doc struct {
		ID         int    `json:"id"`
		StorageKey string `json:"storage_key"`
	}
	json.NewDecoder(rr.Body).Decode(&doc)
	if doc.ID != 42 || !strings.HasPrefix(doc.StorageKey, "pdfs/") || !strings.HasSuffix(doc.StorageKey, "-737_manual.PDF") {
		t.Errorf("unexpected document: %+v", doc)
	}
	rc, err := blobs.Get(context.Background(), doc.StorageKey)
	if err != nil {
		t.Fatalf("stored blob: %v", err)
	}
	stored, _ := io.ReadAll(rc)
	rc.Close()
	if string(stored) != "%PDF-1.4\nbody" {
		t.Errorf("stored content: %q", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDocumentHandler_Upload_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
	}{
		{"no file", "", "", map[string]string{"title": "t"}},
		{"no title", "a.pdf", "%PDF-1.4", nil},
		{"wrong extension", "a.docx", "%PDF-1.4", map[string]string{"title": "t"}},
		{"bad magic", "a.pdf", "<html>", map[string]string{"title": "t"}},
		{"bad outline", "a.pdf", "%PDF-1.4", map[string]string{"title": "t", "outline": "[1,2"}},
	}
	for _, c := range cases {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock.New: %v", err)
		}
		h, _ := newDocumentHandler(t, db)
		body, ct := multipartUpload(t, c.filename, []byte(c.content), c.fields)
		rr := httptest.NewRecorder()
		h.UploadDocument(rr, uploadRequest(body, ct))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", c.name, rr.Code)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("%s: %v", c.name, err)
		}
		db.Close()
	}
}

func TestDocumentHandler_Upload_UnknownManufacturer(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	h, _ := newDocumentHandler(t, db)
	body, ct := multipartUpload(t, "a.pdf", []byte("%PDF-1.4"), map[string]string{"title": "t"})
	rr := httptest.NewRecorder()
	h.UploadDocument(rr, uploadRequest(body, ct))
	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rr.Code)
	}
}

func TestDocumentHandler_DownloadPDF(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h, blobs := newDocumentHandler(t, db)
	blobs.Put(context.Background(), "pdfs/k-manual.pdf", strings.NewReader("%PDF-1.7 data"), "application/pdf")

	mock.ExpectQuery(`FROM documents WHERE id = \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "manufacturer_id", "title", "original_filename", "storage_key",
			"uploaded_by", "uploaded_at", "revision_date", "tags"}).
			AddRow(3, 1, "Manual", "manual.pdf", "pdfs/k-manual.pdf", 1, time.Now(), nil, nil))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(2, "user", "VIEW_DOCUMENT", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := as(requestWithChiURLParams("GET", "/documents/3/pdf", nil, map[string]string{"id": "3"}), testUser, "t")
	rr := httptest.NewRecorder()
	h.DownloadPDF(rr, req)

	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("got %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "%PDF-1.7 data" {
		t.Errorf("body: %q", rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDocumentHandler_DeleteDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h, blobs := newDocumentHandler(t, db)
	blobs.Put(context.Background(), "pdfs/k-manual.pdf", strings.NewReader("%PDF-"), "application/pdf")

	mock.ExpectQuery(`DELETE FROM documents WHERE id = \$1 RETURNING storage_key`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("pdfs/k-manual.pdf"))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(1, "admin", "DELETE_DOCUMENT", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := as(requestWithChiURLParams("DELETE", "/documents/3", nil, map[string]string{"id": "3"}), testAdmin, "t")
	rr := httptest.NewRecorder()
	h.DeleteDocument(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if _, err := blobs.Get(context.Background(), "pdfs/k-manual.pdf"); err != storage.ErrNotFound {
		t.Errorf("blob should be gone, got %v", err)
	}
}

func TestDocumentHandler_UpdateDocument_NoFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h, _ := newDocumentHandler(t, db)
	for _, body := range []string{`{}`, `{"title":"  "}`} {
		req := as(requestWithChiURLParams("PATCH", "/documents/3", []byte(body), map[string]string{"id": "3"}), testAdmin, "t")
		rr := httptest.NewRecorder()
		h.UpdateDocument(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", body, rr.Code)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestDocumentHandler_ListDocuments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM documents WHERE manufacturer_id = \$1 ORDER BY uploaded_at DESC`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "manufacturer_id", "title", "original_filename", "storage_key",
			"uploaded_by", "uploaded_at", "revision_date", "tags"}).
			AddRow(8, 2, "A320 Manual", "a320.pdf", "pdfs/x-a320.pdf", 1, time.Now(), "2025-11", "ut"))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(2, "user", "VIEW_DOC_LIST", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h, _ := newDocumentHandler(t, db)
	req := as(requestWithChiURLParams("GET", "/manufacturers/2/documents", nil, map[string]string{"id": "2"}), testUser, "t")
	rr := httptest.NewRecorder()
	h.ListDocuments(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var out []map[string]any
	json.NewDecoder(rr.Body).Decode(&out)
	if len(out) != 1 || out[0]["title"] != "A320 Manual" {
		t.Errorf("unexpected documents: %v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
