// Package notify posts a rich call notification, audio attached, to a
// Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
)

const (
	webhookUsername = "Trunk Recorder"
	webhookAvatar   = "https://raw.githubusercontent.com/TrunkRecorder/trunkrecorder.github.io/refs/heads/main/static/img/radio.png"
	embedColor      = "12110930"
)

type Payload struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Embeds    []Embed `json:"embeds"`
}

type Embed struct {
	Color     string       `json:"color"`
	Timestamp string       `json:"timestamp"`
	Title     string       `json:"title"`
	Fields    []EmbedField `json:"fields"`
}

type EmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Notifier struct {
	webhookURL string
	httpClient *http.Client
	log        *logger.Logger
}

func New(webhookURL string, httpClient *http.Client, log *logger.Logger) *Notifier {
	return &Notifier{webhookURL: webhookURL, httpClient: httpClient, log: log}
}

// BuildPayload formats the notification for one transcribed call.
func BuildPayload(rec *metadata.CallRecord, transcription string) Payload {
	timestamp := FormatTimestamp(rec.Call.StartTime)

	ids := make([]string, 0, len(rec.Srcs))
	for _, s := range rec.Srcs {
		ids = append(ids, strconv.FormatInt(int64(s.Src), 10))
	}

	return Payload{
		Username:  webhookUsername,
		AvatarURL: webhookAvatar,
		Embeds: []Embed{{
			Color:     embedColor,
			Timestamp: timestamp,
			Title:     rec.Talkgroup.Group + " - " + rec.Talkgroup.Description,
			Fields: []EmbedField{
				{Name: "Start timestamp:", Value: timestamp},
				{Name: "Radio IDs:", Value: strings.Join(ids, ", ")},
				{Name: "Transcription:", Value: transcription},
			},
		}},
	}
}

// FormatTimestamp renders a webhook timestamp: RFC3339 at millisecond
// precision, UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Send posts the payload with the audio file attached. Any non-success
// status fails the upload.
func (n *Notifier) Send(ctx context.Context, rec *metadata.CallRecord, transcription string, audio intake.Artifact) error {
	payload, err := json.Marshal(BuildPayload(rec, transcription))
	if err != nil {
		return apperror.Wrap(apperror.KindExternalService, err, "encoding webhook payload")
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file1", audio.Name)
	if err != nil {
		return apperror.Wrap(apperror.KindExternalService, err, "building webhook form")
	}
	if _, err := part.Write(audio.Data); err != nil {
		return apperror.Wrap(apperror.KindExternalService, err, "building webhook form")
	}
	_ = w.WriteField("payload_json", string(payload))
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, &b)
	if err != nil {
		return apperror.Wrap(apperror.KindExternalService, err, "building webhook request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.KindExternalService, err, "calling webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperror.New(apperror.KindExternalService,
			"webhook returned %d: %s", resp.StatusCode, body)
	}

	n.log.Module("notify").
		WithField("title", rec.Talkgroup.Group+" - "+rec.Talkgroup.Description).
		Info("webhook sent")
	return nil
}
