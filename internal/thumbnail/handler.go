package thumbnail

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/thumbr/service/internal/response"
)

// maxMultipartMemory bounds how much of a parsed request body is held in
// memory before spilling to disk.
const maxMultipartMemory = 8 << 20

// Handler holds HTTP handlers for thumbnail endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new thumbnail Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List godoc
//
//	@Summary		List thumbnails
//	@Description	Returns the most recently created thumbnail records, newest first.
//	@Tags			thumbnails
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			limit	query		int	false	"maximum records to return"	default(100)
//	@Success		200		{object}	response.Envelope{data=[]Thumbnail}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/thumbnails [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "invalid limit parameter", raw)
			return
		}
		limit = n
	}

	records, err := h.svc.List(r.Context(), limit)
	if err != nil {
		response.InternalError(w, "failed to retrieve thumbnails", err.Error())
		return
	}
	response.OK(w, "Thumbnails retrieved successfully", records)
}

// Upload godoc
//
//	@Summary		Upload thumbnails
//	@Description	Accepts a multipart batch of image files, stores each in the object store, and records its metadata. The batch is all-or-nothing: one bad file rejects every file.
//	@Tags			thumbnails
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			files	formData	file	true	"image files (repeatable)"
//	@Success		201		{object}	response.Envelope{data=[]Thumbnail}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/thumbnails [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		response.BadRequest(w, "invalid multipart request", err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	batch, closers, err := filesFromForm(r.MultipartForm)
	if err != nil {
		response.BadRequest(w, "unreadable file part", err.Error())
		return
	}
	defer closeAll(closers)

	records, err := h.svc.Ingest(r.Context(), batch)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	response.Created(w, "Thumbnails created successfully", records)
}

// filesFromForm opens every part of the "files" field in arrival order.
// The caller owns the returned closers.
func filesFromForm(form *multipart.Form) ([]UploadedFile, []io.Closer, error) {
	headers := form.File["files"]
	batch := make([]UploadedFile, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, f)
		batch = append(batch, UploadedFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return batch, closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

// writeIngestError maps coordinator error kinds to distinct HTTP statuses:
// validation 400, object-store write 502, database 500.
func writeIngestError(w http.ResponseWriter, err error) {
	var storeErr *StoreWriteError
	var dbErr *DatabaseError
	switch {
	case IsValidationError(err):
		response.BadRequest(w, "invalid upload batch", err.Error())
	case errors.As(err, &storeErr):
		response.BadGateway(w, "object store write failed", err.Error())
	case errors.As(err, &dbErr):
		response.InternalError(w, "database operation failed", err.Error())
	default:
		response.InternalError(w, "thumbnail ingestion failed", err.Error())
	}
}
