package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/palisade/internal/events"
)

// --- Message types ---

type eventMsg events.Event

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Deliveries    struct {
		Total    int `json:"total"`
		Handled  int `json:"handled"`
		NoAction int `json:"no_action"`
		Rejected int `json:"rejected"`
		Failed   int `json:"failed"`
		Pending  int `json:"pending"`
	} `json:"deliveries"`
}

// deliveryRow mirrors one entry of the admin API's /deliveries response.
type deliveryRow struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	EventType  string    `json:"event_type"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

type deliveriesMsg []deliveryRow

type tickMsg time.Time

type errMsg error

type sseDisconnectedMsg struct{}
type reconnectMsg struct{}

// --- Commands ---

// apiGet performs an authorized GET against the admin API and decodes the
// JSON response into out.
func apiGet(apiURL, apiKey, path string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// fetchHealth queries the /healthz endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := apiGet(apiURL, apiKey, "/healthz", &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchDeliveries queries the /deliveries endpoint for the table view.
func fetchDeliveries(apiURL, apiKey string) tea.Msg {
	var payload struct {
		Deliveries []deliveryRow `json:"deliveries"`
	}
	if err := apiGet(apiURL, apiKey, "/deliveries?limit=25", &payload); err != nil {
		return errMsg(err)
	}
	return deliveriesMsg(payload.Deliveries)
}

// sseFrame accumulates one SSE event's fields until the blank separator.
type sseFrame struct {
	id   int64
	typ  string
	data string
}

func (f *sseFrame) consume(line string) {
	if v, ok := strings.CutPrefix(line, "id: "); ok {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.id = id
		}
		return
	}
	if v, ok := strings.CutPrefix(line, "event: "); ok {
		f.typ = v
		return
	}
	if v, ok := strings.CutPrefix(line, "data: "); ok {
		f.data = v
	}
}

func (f *sseFrame) event() events.Event {
	return events.Event{
		ID:   f.id,
		Type: f.typ,
		At:   time.Now(),
		Data: []byte(f.data),
	}
}

// subscribeToEvents connects to the SSE /events endpoint and feeds events
// into the provided channel. Returns sseDisconnectedMsg when the connection
// drops so the model can schedule a reconnect.
func subscribeToEvents(apiURL, apiKey string, ch chan<- events.Event) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest("GET", apiURL+"/events", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)

		// No timeout: the stream stays open until the server or user ends it.
		resp, err := (&http.Client{}).Do(req)
		if err != nil {
			return sseDisconnectedMsg{}
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var frame sseFrame
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				frame.consume(line)
				continue
			}
			if frame.data != "" {
				ch <- frame.event()
				frame = sseFrame{}
			}
		}

		return sseDisconnectedMsg{}
	}
}

// receiveNextEvent waits for the next event from the channel.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}
