package ai

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type sseChunk struct {
	Text string `json:"text"`
}

// StreamSSE forwards stream to the client as server-sent events. A failed
// stream ends with an error event carrying failureText, which the client
// shows in place of the partial reply. A client that goes away closes the
// stream.
func StreamSSE(c *fiber.Ctx, stream *TextStream, failureText string) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		for {
			chunk, ok := stream.Next()
			if !ok {
				break
			}
			if err := writeEvent(w, "", sseChunk{Text: chunk}); err != nil {
				return
			}
		}
		if stream.Err() != nil {
			_ = writeEvent(w, "error", sseChunk{Text: failureText})
			return
		}
		_ = writeEvent(w, "done", struct{}{})
	})
	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
