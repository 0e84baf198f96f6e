package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/zulfkhar00/instafit_console/internal/session"
)

var errTooLarge = errors.New("image exceeds the upload limit")

// UploadImagesHandler selects the person and/or garment image from a
// multipart form. Fields that are absent leave the current selection as is.
func (h *ConsoleHandler) UploadImagesHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		respond(c, http.StatusBadRequest, ctrl, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}

	// Both parts are validated before either selection changes.
	uploads := make(map[string]*session.Upload, 2)
	for _, field := range []string{"person_image", "garment_image"} {
		files := form.File[field]
		if len(files) == 0 || files[0].Size == 0 {
			continue
		}
		upload, err := h.readUpload(files[0])
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			respond(c, status, ctrl, fmt.Sprintf("%s: %v", field, err))
			return
		}
		uploads[field] = upload
	}

	if len(uploads) == 0 {
		respond(c, http.StatusBadRequest, ctrl, "No images uploaded")
		return
	}
	if upload, ok := uploads["person_image"]; ok {
		ctrl.Apply(session.SelectPerson{Upload: upload})
	}
	if upload, ok := uploads["garment_image"]; ok {
		ctrl.Apply(session.SelectGarment{Upload: upload})
	}
	respond(c, http.StatusOK, ctrl, "")
}

func (h *ConsoleHandler) readUpload(fh *multipart.FileHeader) (*session.Upload, error) {
	if h.MaxUploadBytes > 0 && fh.Size > int64(h.MaxUploadBytes) {
		return nil, errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("not an image (%s)", contentType)
	}
	return &session.Upload{
		Name:        filepath.Base(fh.Filename),
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
	}, nil
}
