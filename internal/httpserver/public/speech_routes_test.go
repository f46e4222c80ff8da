package public

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/audio"
	"github.com/voxgate/voxgate/internal/models"
	"github.com/voxgate/voxgate/internal/services/synthesis"
	"github.com/voxgate/voxgate/internal/services/transcribe"
	"github.com/voxgate/voxgate/internal/storage/spool"
	"github.com/voxgate/voxgate/internal/workerpool"
)

type stubSynthesizer struct {
	speech models.SpeechAudio
	err    error
}

func (s *stubSynthesizer) Synthesize(context.Context, string) (models.SpeechAudio, error) {
	return s.speech, s.err
}

func (s *stubSynthesizer) SampleRate() int { return s.speech.SampleRate }

type stubTranscriber struct {
	result models.TranscriptionResult
	err    error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (models.TranscriptionResult, error) {
	return s.result, s.err
}

func newApp(t *testing.T, container *app.Container) *fiber.App {
	t.Helper()
	router := fiber.New(fiber.Config{DisableStartupMessage: true})
	Register(router, container)
	return router
}

func newTranscribeService(t *testing.T, engine *stubTranscriber) *transcribe.Service {
	t.Helper()
	files, err := spool.New(t.TempDir())
	require.NoError(t, err)
	return transcribe.NewService(engine, files, nil, nil, nil)
}

func postJSON(t *testing.T, router *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := router.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Error
}

func TestSynthesizeReturnsWAV(t *testing.T) {
	engine := &stubSynthesizer{speech: models.SpeechAudio{
		Samples:    models.Waveform{0, 0.5, -0.5, 0.25},
		SampleRate: 22050,
	}}
	container := &app.Container{Synthesis: synthesis.NewService(engine, nil, nil, nil)}

	resp := postJSON(t, newApp(t, container), "/tts/", `{"text":"hello world"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/wav", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	info, err := audio.ParseWAV(body)
	require.NoError(t, err)
	require.Equal(t, 22050, info.SampleRate)
	require.Equal(t, 4, info.SampleCount())
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	container := &app.Container{Synthesis: synthesis.NewService(&stubSynthesizer{}, nil, nil, nil)}
	router := newApp(t, container)

	for _, body := range []string{`{"text":""}`, `{"text":"   "}`, `{}`} {
		resp := postJSON(t, router, "/tts/", body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "text is required", errorMessage(t, resp))
	}
}

func TestSynthesizeRejectsMalformedBody(t *testing.T) {
	container := &app.Container{Synthesis: synthesis.NewService(&stubSynthesizer{}, nil, nil, nil)}

	resp := postJSON(t, newApp(t, container), "/tts/", `{"text":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSynthesizeUnavailableWhenModelNotLoaded(t *testing.T) {
	container := &app.Container{SynthesisErr: errors.New("weights missing")}

	resp := postJSON(t, newApp(t, container), "/tts/", `{"text":"hello"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "synthesis model is not available", errorMessage(t, resp))
}

func TestSynthesizeReportsEngineFailure(t *testing.T) {
	engine := &stubSynthesizer{err: errors.New("voice exploded")}
	container := &app.Container{Synthesis: synthesis.NewService(engine, nil, nil, nil)}

	resp := postJSON(t, newApp(t, container), "/tts/", `{"text":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	msg := errorMessage(t, resp)
	require.Contains(t, msg, "speech synthesis failed")
	require.Contains(t, msg, "voice exploded")
}

func TestSynthesizeAnswersBusyOnSaturation(t *testing.T) {
	engine := &stubSynthesizer{err: workerpool.ErrSaturated}
	container := &app.Container{Synthesis: synthesis.NewService(engine, nil, nil, nil)}

	resp := postJSON(t, newApp(t, container), "/tts/", `{"text":"hello"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "server busy, try again later", errorMessage(t, resp))
}

func multipartUpload(t *testing.T, field, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, contents)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func postUpload(t *testing.T, router *fiber.App, field, filename, contents string) *http.Response {
	t.Helper()
	body, contentType := multipartUpload(t, field, filename, contents)
	req := httptest.NewRequest(http.MethodPost, "/stt/", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err := router.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestTranscribeReturnsJSON(t *testing.T) {
	engine := &stubTranscriber{result: models.TranscriptionResult{Text: "hello there"}}
	container := &app.Container{Transcription: newTranscribeService(t, engine)}

	resp := postUpload(t, newApp(t, container), "audio_file", "clip.wav", "fake audio")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload models.TranscriptionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "clip.wav", payload.Filename)
	require.Equal(t, "hello there", payload.Transcription)
}

func TestTranscribeAcceptsLegacyFieldName(t *testing.T) {
	engine := &stubTranscriber{result: models.TranscriptionResult{Text: "ok"}}
	container := &app.Container{Transcription: newTranscribeService(t, engine)}

	resp := postUpload(t, newApp(t, container), "file", "clip.ogg", "fake audio")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTranscribeRejectsMissingFile(t *testing.T) {
	container := &app.Container{Transcription: newTranscribeService(t, &stubTranscriber{})}
	router := newApp(t, container)

	req := httptest.NewRequest(http.MethodPost, "/stt/", strings.NewReader(""))
	resp, err := router.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "audio file is required", errorMessage(t, resp))
}

func TestTranscribeUnavailableWhenModelNotLoaded(t *testing.T) {
	container := &app.Container{TranscriptionErr: errors.New("weights missing")}

	resp := postUpload(t, newApp(t, container), "audio_file", "clip.wav", "fake audio")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "transcription model is not available", errorMessage(t, resp))
}

func TestTranscribeReportsEngineFailure(t *testing.T) {
	engine := &stubTranscriber{err: errors.New("decode error")}
	container := &app.Container{Transcription: newTranscribeService(t, engine)}

	resp := postUpload(t, newApp(t, container), "audio_file", "clip.wav", "fake audio")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	msg := errorMessage(t, resp)
	require.Contains(t, msg, "transcription failed")
	require.Contains(t, msg, "decode error")
}

func TestTranscribeAnswersBusyOnSaturation(t *testing.T) {
	engine := &stubTranscriber{err: workerpool.ErrSaturated}
	container := &app.Container{Transcription: newTranscribeService(t, engine)}

	resp := postUpload(t, newApp(t, container), "audio_file", "clip.wav", "fake audio")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
