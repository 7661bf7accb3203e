package catalog

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vitrine/catalog/internal/response"
)

const (
	msgCreated      = "Roupa adicionada com sucesso!"
	msgCreateFailed = "Erro ao adicionar roupa."
	msgListFailed   = "Erro ao buscar roupas."
	msgTooLarge     = "Arquivo muito grande."
	msgAlive        = "Endpoint está funcionando!"

	// multipartMemory is how much of a form is kept in memory before spilling to temp files.
	multipartMemory = 8 << 20
)

// Handler holds HTTP handlers for catalog endpoints.
type Handler struct {
	svc       *Service
	log       *zap.Logger
	maxUpload int64
}

// NewHandler creates a catalog Handler. maxUpload caps the request body size.
func NewHandler(svc *Service, log *zap.Logger, maxUpload int64) *Handler {
	return &Handler{svc: svc, log: log, maxUpload: maxUpload}
}

// Liveness godoc
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	plain
//	@Success	200	{string}	string	"Endpoint está funcionando!"
//	@Router		/test [get]
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	response.Text(w, http.StatusOK, msgAlive)
}

// Create godoc
//
//	@Summary		Add a clothing item
//	@Description	Stores the photo and records the item. preco is required when images go to object storage.
//	@Tags			roupas
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			nome	formData	string	true	"Item name"
//	@Param			preco	formData	string	false	"Price, e.g. 49.90"
//	@Param			foto	formData	file	true	"Photo"
//	@Success		200		{object}	response.Message
//	@Failure		400		{object}	response.Message
//	@Failure		413		{object}	response.Message
//	@Failure		500		{object}	response.Message
//	@Router			/api/adicionar-roupa [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	in, err := h.readNewItem(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		if isTooLarge(err) {
			response.TooLarge(w, msgTooLarge)
			return
		}
		response.BadRequest(w, h.svc.missingFieldsMessage())
		return
	}
	if in.Photo != nil {
		if c, ok := in.Photo.Body.(io.Closer); ok {
			defer c.Close()
		}
	}

	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, msgCreateFailed)
		return
	}

	body := response.Message{Message: msgCreated}
	if h.svc.Variant() == VariantObject {
		body.FotoURL = item.ImageRef
	}
	response.OK(w, body)
}

// List godoc
//
//	@Summary	List clothing items
//	@Tags		roupas
//	@Produce	json
//	@Success	200	{array}		Item
//	@Failure	500	{object}	response.Message
//	@Router		/api/roupas [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err, msgListFailed)
		return
	}
	if items == nil {
		items = []Item{}
	}
	response.OK(w, items)
}

// readNewItem parses the multipart form. A body that is not multipart is read
// as a plain form, which can never carry the photo.
func (h *Handler) readNewItem(r *http.Request) (NewItem, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return NewItem{}, err
	}

	in := NewItem{Name: r.FormValue("nome"), Price: r.FormValue("preco")}

	file, header, err := r.FormFile("foto")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return NewItem{}, err
	}

	contentType, err := photoContentType(file, header)
	if err != nil {
		file.Close()
		return NewItem{}, err
	}

	in.Photo = &Photo{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	return in, nil
}

// photoContentType trusts the declared type unless the client sent none or
// the generic octet-stream, in which case the leading bytes are sniffed.
func photoContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	declared := header.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mt.String(), nil
}

// isTooLarge matches the body limit error, including parser errors that
// flatten it into their message.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	var invalid *ValidationError
	if errors.As(err, &invalid) {
		response.BadRequest(w, invalid.Message)
		return
	}
	h.log.Error(message,
		zap.Error(err),
		zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
	)
	response.InternalError(w, message)
}
