// Package intake validates the multipart upload and buffers its two
// artifacts.
package intake

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"trunk-processor/internal/apperror"
)

// MaxFileSize caps each uploaded part at 50 MiB.
const MaxFileSize = 50 * 1024 * 1024

// Artifact is one uploaded file: its original filename and raw bytes.
type Artifact struct {
	Name string
	Data []byte
}

// Upload is the validated pair of artifacts from one request.
type Upload struct {
	JSON  Artifact
	Audio Artifact
}

// Read consumes the request's multipart body and returns the two required
// parts. Parts must be named "json" or "audio", carry a filename with an
// accepted extension, and stay under MaxFileSize.
func Read(r *http.Request, audioExtensions []string) (*Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidMultipart, err, "reading multipart body")
	}

	parts := make(map[string]Artifact)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInvalidMultipart, err, "reading multipart part")
		}

		name := part.FormName()
		if name == "" {
			return nil, apperror.New(apperror.KindInvalidMultipart, "part missing field name")
		}

		fileName := part.FileName()
		if fileName == "" {
			return nil, apperror.New(apperror.KindMissingField, "missing filename for field: %s", name)
		}

		// read one byte past the cap so an oversize part is detected
		// without buffering the rest of it
		data, err := io.ReadAll(io.LimitReader(part, MaxFileSize+1))
		if err != nil {
			return nil, apperror.Wrap(apperror.KindInvalidMultipart, err, "reading part %q", name)
		}
		if len(data) > MaxFileSize {
			return nil, apperror.FileTooLarge(int64(len(data)), MaxFileSize)
		}

		switch name {
		case "json":
			if !strings.HasSuffix(strings.ToLower(fileName), ".json") {
				return nil, apperror.New(apperror.KindInvalidFileType,
					"JSON file must have .json extension")
			}
		case "audio":
			if !hasAllowedExtension(fileName, audioExtensions) {
				return nil, apperror.New(apperror.KindInvalidFileType,
					"audio file must have one of these extensions: %s",
					strings.Join(audioExtensions, ", "))
			}
		default:
			return nil, apperror.New(apperror.KindInvalidFileType,
				"field name must be 'json' or 'audio', got %q", name)
		}

		parts[name] = Artifact{Name: fileName, Data: data}
	}

	jsonFile, ok := parts["json"]
	if !ok {
		return nil, apperror.MissingField("json")
	}
	audioFile, ok := parts["audio"]
	if !ok {
		return nil, apperror.MissingField("audio")
	}

	return &Upload{JSON: jsonFile, Audio: audioFile}, nil
}

func hasAllowedExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
