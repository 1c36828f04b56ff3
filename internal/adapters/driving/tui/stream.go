package tui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

// streamEvent is one decoded frame from the /stream endpoint. Exactly
// one of Update or Heartbeat is set, according to the wire type.
type streamEvent struct {
	Update    *domain.PriceUpdateEvent
	Heartbeat *domain.HeartbeatEvent
}

// Messages delivered to the model by the stream reader.
type (
	connectedMsg  struct{ events <-chan streamEvent }
	eventMsg      struct{ event streamEvent }
	streamDoneMsg struct{ err error }
)

// connectStream opens the SSE endpoint and starts a reader goroutine.
func connectStream(ctx context.Context, baseURL string) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/stream", nil)
		if err != nil {
			return streamDoneMsg{err: err}
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return streamDoneMsg{err: err}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return streamDoneMsg{err: fmt.Errorf("stream returned %s", resp.Status)}
		}

		events := make(chan streamEvent, 16)
		go func() {
			defer resp.Body.Close()
			defer close(events)
			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				event, ok := decodeFrame(strings.TrimPrefix(line, "data: "))
				if !ok {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}()

		return connectedMsg{events: events}
	}
}

// waitForEvent blocks on the stream channel for the next frame.
func waitForEvent(events <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamDoneMsg{}
		}
		return eventMsg{event: event}
	}
}

// decodeFrame sniffs the wire type and unmarshals accordingly.
func decodeFrame(data string) (streamEvent, bool) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return streamEvent{}, false
	}

	switch probe.Type {
	case domain.EventTypePriceUpdate:
		var update domain.PriceUpdateEvent
		if err := json.Unmarshal([]byte(data), &update); err != nil {
			return streamEvent{}, false
		}
		return streamEvent{Update: &update}, true
	case domain.EventTypeHeartbeat:
		var heartbeat domain.HeartbeatEvent
		if err := json.Unmarshal([]byte(data), &heartbeat); err != nil {
			return streamEvent{}, false
		}
		return streamEvent{Heartbeat: &heartbeat}, true
	default:
		return streamEvent{}, false
	}
}
