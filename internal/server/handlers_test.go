package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/refine"
)

// fakeService implements Service with injectable behavior.
type fakeService struct {
	submitted  []string
	fullAudio  bool
	job        domain.Job
	statusErr  error
	refineText string
	refineErr  error
}

func (f *fakeService) Submit(sourcePath string, fullAudio bool) domain.Job {
	f.submitted = append(f.submitted, sourcePath)
	f.fullAudio = fullAudio
	return domain.Job{ID: "job-123", Status: domain.JobStatusQueued}
}

func (f *fakeService) Status(id string) (domain.Job, error) {
	if f.statusErr != nil {
		return domain.Job{}, f.statusErr
	}
	return f.job, nil
}

func (f *fakeService) Events(id string, sinceSeq int64) ([]jobs.Event, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return []jobs.Event{{Seq: 1, JobID: id}}, nil
}

func (f *fakeService) Diagnostics() domain.DiagnosticReport {
	return domain.DiagnosticReport{}
}

func (f *fakeService) Refine(ctx context.Context, id string, mode refine.Mode) (string, error) {
	return f.refineText, f.refineErr
}

// newTestRouter builds the router over a fake service.
func newTestRouter(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()
	return New(svc, Config{UploadDir: t.TempDir()}, zerolog.Nop())
}

// multipartBody builds an upload request body with an audio field.
func multipartBody(t *testing.T, fullAudio string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("audio", "meeting.mp3")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake audio bytes"))
	require.NoError(t, err)

	if fullAudio != "" {
		require.NoError(t, w.WriteField("full_audio", fullAudio))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// TestSubmitAcceptsUploadImmediately checks 202 with a job id.
func TestSubmitAcceptsUploadImmediately(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	body, contentType := multipartBody(t, "true")
	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "job-123")
	require.Len(t, svc.submitted, 1)
	assert.True(t, strings.HasSuffix(svc.submitted[0], ".mp3"))
	assert.True(t, svc.fullAudio)
}

// TestSubmitWithoutFileIsBadRequest checks upload validation.
func TestSubmitWithoutFileIsBadRequest(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/transcriptions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestStatusReturnsSnapshot checks the polling endpoint.
func TestStatusReturnsSnapshot(t *testing.T) {
	svc := &fakeService{job: domain.Job{
		ID:       "job-123",
		Status:   domain.JobStatusProcessing,
		Progress: 42,
		Stage:    "Transcribing",
	}}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/transcriptions/job-123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 42, got.Progress)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

// TestStatusUnknownJobIs404 checks NotFound mapping.
func TestStatusUnknownJobIs404(t *testing.T) {
	svc := &fakeService{statusErr: jobs.ErrNotFound}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/transcriptions/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestDownloadBeforeCompletionIs409 checks artifact availability rules.
func TestDownloadBeforeCompletionIs409(t *testing.T) {
	svc := &fakeService{job: domain.Job{ID: "job-123", Status: domain.JobStatusProcessing}}
	router := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/transcriptions/job-123/download", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// TestEventsEndpointReturnsLog checks the incremental event read.
func TestEventsEndpointReturnsLog(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/transcriptions/job-123/events?since=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"seq\":1")
}

// TestRefineValidatesModeAndMapsErrors checks the refine endpoint.
func TestRefineValidatesModeAndMapsErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svc      *fakeService
		wantCode int
	}{
		{"bad mode", `{"mode":"poetry"}`, &fakeService{}, http.StatusBadRequest},
		{"not found", `{"mode":"summary"}`, &fakeService{refineErr: jobs.ErrNotFound}, http.StatusNotFound},
		{"not completed", `{"mode":"summary"}`, &fakeService{refineErr: ErrJobNotCompleted}, http.StatusConflict},
		{"disabled", `{"mode":"summary"}`, &fakeService{refineErr: ErrRefineDisabled}, http.StatusServiceUnavailable},
		{"ok", `{"mode":"cleanup"}`, &fakeService{refineText: "clean"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.svc)
			req := httptest.NewRequest(http.MethodPost, "/api/transcriptions/job-123/refine", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

// TestHealthReflectsDiagnostics checks readiness reporting.
func TestHealthReflectsDiagnostics(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
