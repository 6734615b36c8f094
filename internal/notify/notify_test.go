package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
)

const webhookURL = "http://discord.local/api/webhooks/123/token"

func newTestNotifier(t *testing.T) *Notifier {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return New(webhookURL, httpClient, logger.New())
}

func testRecord() *metadata.CallRecord {
	return &metadata.CallRecord{
		Call: metadata.Call{
			Filename:  "p25/2024/05/01/call.m4a",
			StartTime: time.Date(2024, 5, 1, 12, 31, 30, 0, time.UTC),
		},
		Talkgroup: metadata.Talkgroup{
			ID:          100,
			Description: "Fire Dispatch",
			Group:       "Fire",
		},
		Srcs: []metadata.SrcEntry{
			{Src: 12345},
			{Src: 67890},
		},
	}
}

func TestBuildPayload(t *testing.T) {
	payload := BuildPayload(testRecord(), "engine one responding")

	assert.Equal(t, "Trunk Recorder", payload.Username)
	require.Len(t, payload.Embeds, 1)

	embed := payload.Embeds[0]
	assert.Equal(t, "12110930", embed.Color)
	assert.Equal(t, "Fire - Fire Dispatch", embed.Title)
	assert.Equal(t, "2024-05-01T12:31:30.000Z", embed.Timestamp)

	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Start timestamp:", embed.Fields[0].Name)
	assert.Equal(t, "2024-05-01T12:31:30.000Z", embed.Fields[0].Value)
	assert.Equal(t, "Radio IDs:", embed.Fields[1].Name)
	assert.Equal(t, "12345, 67890", embed.Fields[1].Value)
	assert.Equal(t, "Transcription:", embed.Fields[2].Name)
	assert.Equal(t, "engine one responding", embed.Fields[2].Value)
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := FormatTimestamp(time.Date(2024, 5, 1, 14, 31, 30, 0, loc))
	assert.Equal(t, "2024-05-01T12:31:30.000Z", ts)
}

func TestSendPostsPayloadWithAttachment(t *testing.T) {
	n := newTestNotifier(t)

	httpmock.RegisterResponder(http.MethodPost, webhookURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseMultipartForm(1<<20))

			var payload Payload
			require.NoError(t, json.Unmarshal([]byte(req.FormValue("payload_json")), &payload))
			require.Len(t, payload.Embeds, 1)
			assert.Equal(t, "Fire - Fire Dispatch", payload.Embeds[0].Title)

			file, header, err := req.FormFile("file1")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "call.m4a", header.Filename)
			data, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, []byte("audio"), data)

			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	err := n.Send(context.Background(), testRecord(), "engine one responding",
		intake.Artifact{Name: "call.m4a", Data: []byte("audio")})
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSendNonSuccessStatusFails(t *testing.T) {
	n := newTestNotifier(t)

	httpmock.RegisterResponder(http.MethodPost, webhookURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, "rate limited"))

	err := n.Send(context.Background(), testRecord(), "text",
		intake.Artifact{Name: "call.m4a", Data: []byte("audio")})
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindExternalService, appErr.Kind)
}
