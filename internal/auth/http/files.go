package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
)

// DefaultMaxUploadBytes caps multipart uploads when FilesHandler.MaxUploadBytes is unset.
const DefaultMaxUploadBytes = 10 << 20

type FilesHandler struct {
	Files          *service.FileService
	MaxUploadBytes int64
}

func (h *FilesHandler) maxUpload() int64 {
	if h.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return h.MaxUploadBytes
}

// HandleUpload handles POST /v1/files
//
//	@Summary		Upload a file
//	@Description	Multipart upload. The "file" part holds the content; "public" (true/false) makes it readable by every active user.
//	@Tags			Files
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Content"
//	@Param			public	formData	bool	false	"Readable by every active user"
//	@Success		201		{object}	authsdk.FileResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		403		{object}	authsdk.ErrorResponse	"forbidden"
//	@Failure		413		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Security		BearerAuth
//	@Router			/v1/files [post].
func (h *FilesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			authsdk.NewAPIError(http.StatusRequestEntityTooLarge, authsdk.ErrorCodeInvalidRequest,
				"file exceeds "+strconv.FormatInt(h.maxUpload(), 10)+" bytes").WriteError(w)
			return
		}
		badRequest(w, "expected a multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, `missing "file" part`)
		return
	}
	defer file.Close()

	public := false
	if v := r.FormValue("public"); v != "" {
		if public, err = strconv.ParseBool(v); err != nil {
			badRequest(w, `"public" must be true or false`)
			return
		}
	}

	f, err := h.Files.Upload(r.Context(), userID, service.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Public:      public,
	}, file)
	if err != nil {
		writeError(w, r, "upload failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toFileResponse(f, ""))
}

// HandleList handles GET /v1/files
//
//	@Summary	List the caller's files
//	@Tags		Files
//	@Produce	json
//	@Success	200	{object}	authsdk.ListFilesResponse
//	@Security	BearerAuth
//	@Router		/v1/files [get].
func (h *FilesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	files, err := h.Files.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, "list files failed", err)
		return
	}

	resp := authsdk.ListFilesResponse{Files: make([]authsdk.FileResponse, len(files))}
	for i, f := range files {
		resp.Files[i] = toFileResponse(f, "")
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/files/{id}
//
//	@Summary		Get a file
//	@Description	Returns metadata and a short-lived download URL.
//	@Tags			Files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	authsdk.FileResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Security		BearerAuth
//	@Router			/v1/files/{id} [get].
func (h *FilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	f, url, err := h.Files.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get file failed", err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toFileResponse(f, url))
}

// HandleDelete handles DELETE /v1/files/{id}
func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	if err := h.Files.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, "delete file failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
