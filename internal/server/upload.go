package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectdash/internal/blob"
	"projectdash/internal/perrors"
)

// handleUploadScreenshot stores an image from the multipart "file" field.
func (s *Server) handleUploadScreenshot(c *gin.Context) {
	if s.blobs == nil {
		s.respondError(c, perrors.NewErrInternalServerError("Failed to upload file", errors.New("upload storage not configured")))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, blob.MaxScreenshotSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, perrors.NewErrUpload(blob.ErrTooLarge.Error()))
			return
		}
		s.respondError(c, perrors.NewErrUpload(blob.ErrEmpty.Error()))
		return
	}
	if header.Size > blob.MaxScreenshotSize {
		s.respondError(c, perrors.NewErrUpload(blob.ErrTooLarge.Error()))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.respondError(c, perrors.NewErrInternalServerError("Failed to upload file", err))
		return
	}
	defer file.Close()

	obj, err := s.blobs.PutScreenshot(currentUserID(c), file)
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrEmpty), errors.Is(err, blob.ErrTooLarge), errors.Is(err, blob.ErrUnsupportedType):
			s.respondError(c, perrors.NewErrUpload(err.Error()))
		default:
			s.respondError(c, perrors.NewErrInternalServerError("Failed to upload file", err))
		}
		return
	}
	respondSuccess(c, http.StatusOK, obj)
}
