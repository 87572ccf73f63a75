package web

import (
	"bufio"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/stream"
)

// defaultMaxIdle closes streams that have seen no trace activity for five
// minutes; clients reconnect with ?from= to resume.
const defaultMaxIdle = 5 * time.Minute

// StreamEvents serves the campaign trace log over SSE. The client supplies
// ?from=N to resume after a disconnect; the stream never restarts from the
// beginning on its own.
func (h *APIHandlers) StreamEvents(c fiber.Ctx) error {
	campaignID := c.Params("id")
	user := userID(c)

	from := 0

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := strconv.Atoi(fromStr)
		if err != nil {
			return badRequest(c, "Invalid from parameter: "+fromStr)
		}

		from = parsed
	}

	maxIdle := defaultMaxIdle

	if idleStr := c.Query("max_idle_seconds"); idleStr != "" {
		seconds, err := strconv.Atoi(idleStr)
		if err != nil {
			return badRequest(c, "Invalid max_idle_seconds parameter: "+idleStr)
		}

		maxIdle = time.Duration(seconds) * time.Second
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// The writer runs after this handler returns, so it must not hang off the
	// request context. A gone client surfaces as a flush error, which ends
	// the poll loop.
	ctx := context.WithoutCancel(c.Context())

	return c.SendStreamWriter(func(w *bufio.Writer) {
		send := func(event models.TraceEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}

			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return err
			}

			return w.Flush()
		}

		_ = h.streamer.Stream(ctx, campaignID, user, stream.Options{
			StartIndex: from,
			MaxIdle:    maxIdle,
		}, send)
	})
}
