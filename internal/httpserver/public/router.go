package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxgate/voxgate/internal/app"
)

// Register wires up the public speech API routes.
func Register(router *fiber.App, container *app.Container) {
	h := &speechHandler{container: container}
	router.Post("/tts/", h.synthesize)
	router.Post("/stt/", h.transcribe)
}
