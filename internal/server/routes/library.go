package routes

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/tarnish-app/tarnish/internal/cache"
	"github.com/tarnish-app/tarnish/internal/library"
)

// ProvenanceReader 根据摘要返回缓存条目的原始 key。
type ProvenanceReader interface {
	Provenance(ctx context.Context, digest string) (string, error)
}

type libraryPayload struct {
	Stats library.Stats  `json:"stats"`
	Games []library.Game `json:"games"`
}

// RegisterLibraryRoutes 暴露只读的库状态接口以及手动刷新入口。
func RegisterLibraryRoutes(app *fiber.App, lib *library.Library) {
	if app == nil || lib == nil {
		return
	}

	app.Get("/library", func(c fiber.Ctx) error {
		return c.JSON(libraryPayload{Stats: lib.Stats(), Games: lib.Games()})
	})

	app.Get("/library/downloaded", func(c fiber.Ctx) error {
		return c.JSON(libraryPayload{Stats: lib.Stats(), Games: lib.Downloaded()})
	})

	app.Get("/library/not-downloaded", func(c fiber.Ctx) error {
		return c.JSON(libraryPayload{Stats: lib.Stats(), Games: lib.NotDownloaded()})
	})

	app.Get("/library/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "machine_name_required"})
		}
		game, ok := lib.Lookup(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game_not_found"})
		}
		return c.JSON(game)
	})

	app.Post("/library/refresh", func(c fiber.Ctx) error {
		return c.JSON(lib.UpdateDownloadStatus())
	})
}

// RegisterCacheRoutes 暴露 /-/cache/:digest 诊断接口，返回摘要对应的原始 URL。
func RegisterCacheRoutes(app *fiber.App, reader ProvenanceReader) {
	if app == nil || reader == nil {
		return
	}

	app.Get("/-/cache/:digest", func(c fiber.Ctx) error {
		digest := strings.ToLower(strings.TrimSpace(c.Params("digest")))
		key, err := reader.Provenance(c.Context(), digest)
		switch {
		case err == nil:
			return c.JSON(fiber.Map{"digest": digest, "key": key})
		case errors.Is(err, cache.ErrInvalidDigest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_digest"})
		case errors.Is(err, cache.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cache_entry_not_found"})
		default:
			return err
		}
	})
}
