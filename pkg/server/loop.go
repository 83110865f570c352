package server

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"

	"github.com/voxrelay/voxrelay/pkg/protocol"
	"github.com/voxrelay/voxrelay/pkg/relay"
)

// eventQueueDepth bounds how many events can pile up behind a slow
// pipeline before the read loop blocks.
const eventQueueDepth = 64

// runConnection pumps the socket until the peer disconnects.
//
// kill_streaming is applied directly from the read loop; the processor
// goroutine may be blocked inside a TTS stream at that moment and a
// queued cancel would arrive too late to matter. Every other event,
// set_tts included, is processed strictly in arrival order so a flag
// flip cannot overtake a query still waiting in the queue.
func runConnection(c *websocket.Conn, conn *relay.Connection, transport relay.Transport,
	logger *slog.Logger, received *atomic.Uint64) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := make(chan *protocol.Event, eventQueueDepth)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range queue {
			if err := conn.HandleEvent(ctx, ev); err != nil {
				logger.Error("event processing failed", "type", ev.Type, "error", err)
				c.Close()
				return
			}
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("read loop ended", "error", err)
			break
		}
		received.Add(1)

		ev, err := protocol.ParseEvent(data)
		if err != nil {
			logger.Warn("unparseable message", "error", err)
			if err := transport.SendJSON(protocol.NewErrorEvent("Invalid message format")); err != nil {
				break
			}
			continue
		}

		if bypassesQueue(ev.Type) {
			conn.RequestCancel(ev.UUID)
			continue
		}

		select {
		case queue <- ev:
		case <-done:
			// Processor hit a fatal error and closed the socket; the
			// next ReadMessage fails and exits the loop.
		}
	}

	close(queue)
	<-done
}

// bypassesQueue reports whether an event type skips the ordered queue
// and is applied from the read loop. Only cancellation qualifies: it
// must land while the processor is mid-stream. set_tts stays queued so
// it cannot take effect ahead of queries that arrived before it.
func bypassesQueue(t protocol.EventType) bool {
	return t == protocol.TypeKillStreaming
}
