package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/keepevents-backend/internal/models"
	"github.com/sefazor/keepevents-backend/internal/service"
	"github.com/sefazor/keepevents-backend/pkg/apperrors"
)

// readUploads collects every file under field plus the shared description, tags and
// meta form values. A file that cannot be read keeps its slot with ReadErr set.
func readUploads(c *fiber.Ctx, field string) ([]models.UploadPhotoInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidation("Invalid form data")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, apperrors.NewValidation("No files uploaded")
	}

	var meta map[string]interface{}
	if raw := c.FormValue("photoMeta"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, apperrors.NewValidation("photoMeta must be a JSON object")
		}
	}
	description := c.FormValue("photoDesc")
	tags := splitList(c.FormValue("tags"))

	inputs := make([]models.UploadPhotoInput, 0, len(files))
	for _, fh := range files {
		data, err := readFile(fh)
		inputs = append(inputs, models.UploadPhotoInput{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
			Description: description,
			Tags:        tags,
			Meta:        meta,
			ReadErr:     err,
		})
	}
	return inputs, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > service.MaxPhotoSize {
		return nil, apperrors.NewValidation(fmt.Sprintf("%s exceeds %d MB", fh.Filename, service.MaxPhotoSize>>20))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, service.MaxPhotoSize+1))
}
