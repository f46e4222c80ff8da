package public

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/voxgate/voxgate/internal/app"
	"github.com/voxgate/voxgate/internal/httpserver/httputil"
	"github.com/voxgate/voxgate/internal/models"
	"github.com/voxgate/voxgate/internal/workerpool"
)

type speechHandler struct {
	container *app.Container
}

// synthesize handles POST /tts/: JSON text in, WAV audio out.
func (h *speechHandler) synthesize(c *fiber.Ctx) error {
	if h.container.Synthesis == nil {
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, "synthesis model is not available")
	}

	var req models.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "text is required")
	}

	resp, err := h.container.Synthesis.Synthesize(c.UserContext(), req.Text)
	if err != nil {
		if errors.Is(err, workerpool.ErrSaturated) {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, "server busy, try again later")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(resp.Audio)
}

// transcribe handles POST /stt/: multipart audio upload in, JSON text out.
func (h *speechHandler) transcribe(c *fiber.Ctx) error {
	if h.container.Transcription == nil {
		return httputil.WriteError(c, fiber.StatusServiceUnavailable, "transcription model is not available")
	}

	fh, err := c.FormFile("audio_file")
	if err != nil {
		// Legacy clients post the upload under "file".
		fh, err = c.FormFile("file")
	}
	if err != nil || fh.Filename == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "audio file is required")
	}

	src, err := fh.Open()
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "failed to open uploaded file")
	}

	resp, err := h.container.Transcription.Transcribe(c.UserContext(), models.AudioInput{
		Reader:      src,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Bytes:       fh.Size,
	})
	if err != nil {
		if errors.Is(err, workerpool.ErrSaturated) {
			return httputil.WriteError(c, fiber.StatusServiceUnavailable, "server busy, try again later")
		}
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(resp)
}
