// Package transcribe sends call audio to an external speech-to-text
// endpoint.
package transcribe

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
)

type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

func New(endpoint, model string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{endpoint: endpoint, model: model, httpClient: httpClient, log: log}
}

// Transcribe posts the audio as a multipart form and returns the response
// body as plain text. A single failure aborts the transcription path; no
// retry.
func (c *Client) Transcribe(ctx context.Context, audio intake.Artifact) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	part, err := w.CreateFormFile("file", audio.Name)
	if err != nil {
		return "", apperror.Wrap(apperror.KindExternalService, err, "building transcription form")
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", apperror.Wrap(apperror.KindExternalService, err, "building transcription form")
	}
	_ = w.WriteField("model", c.model)
	_ = w.WriteField("language", "en")
	_ = w.WriteField("response_format", "text")
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &b)
	if err != nil {
		return "", apperror.Wrap(apperror.KindExternalService, err, "building transcription request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.Wrap(apperror.KindExternalService, err, "calling transcription endpoint")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(apperror.KindExternalService, err, "reading transcription response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.New(apperror.KindExternalService,
			"transcription endpoint returned %d: %s", resp.StatusCode, body)
	}

	c.log.Module("transcribe").
		WithField("audio_file", audio.Name).
		WithField("chars", len(body)).
		Info("transcription received")
	return string(body), nil
}
