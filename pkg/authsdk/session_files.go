package authsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// UploadFile stores r under name. Public files can be read by any active user.
// Requires: storage:create
func (s *Session) UploadFile(ctx context.Context, name string, r io.Reader, public bool) (*FileResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("public", strconv.FormatBool(public)); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{"Content-Type": mw.FormDataContentType()}
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/files", &buf, headers, "storage:create")
	if err != nil {
		return nil, err
	}

	var file FileResponse
	if err := decodeJSON(resp, &file, http.StatusCreated); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListFiles returns the caller's own files, newest first.
func (s *Session) ListFiles(ctx context.Context) (*ListFilesResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/files", nil, nil)
	if err != nil {
		return nil, err
	}

	var files ListFilesResponse
	if err := decodeJSON(resp, &files, http.StatusOK); err != nil {
		return nil, err
	}
	return &files, nil
}

// GetFile returns the file's metadata and a short-lived download URL.
func (s *Session) GetFile(ctx context.Context, id string) (*FileResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/files/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var file FileResponse
	if err := decodeJSON(resp, &file, http.StatusOK); err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *Session) DeleteFile(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/files/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
