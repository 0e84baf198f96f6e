package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

// loadUpload reads an image file from disk. Anything that does not sniff as
// an image is refused.
func loadUpload(path string) (*session.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", path, contentType)
	}
	return &session.Upload{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
	}, nil
}

// selectFile loads path and applies it as the person or garment image. An
// empty path leaves the selection unchanged.
func selectFile(ctrl *dispatcher.Controller, role, path string) error {
	if path == "" {
		return nil
	}
	upload, err := loadUpload(path)
	if err != nil {
		return err
	}
	switch role {
	case "person":
		ctrl.Apply(session.SelectPerson{Upload: upload})
	case "garment":
		ctrl.Apply(session.SelectGarment{Upload: upload})
	default:
		return fmt.Errorf("unknown image role %q", role)
	}
	return nil
}
