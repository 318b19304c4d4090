package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	EventReady   = "ready"
	EventMessage = "message"
)

// Event is one Server-Sent Events frame.
type Event struct {
	Name string
	Data []byte
}

// Message decodes a message event.
func (e Event) Message() (Message, error) {
	var msg Message
	if e.Name != EventMessage {
		return msg, fmt.Errorf("client: event %q is not a message", e.Name)
	}
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return msg, fmt.Errorf("client: decode message event: %w", err)
	}
	return msg, nil
}

// Stream reads a room's realtime feed. Close it to release the connection.
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	once   sync.Once
}

// OpenRoomStream subscribes to new messages in a room.
func (c *Client) OpenRoomStream(ctx context.Context, roomID uuid.UUID) (*Stream, error) {
	path := apiPrefix + "/chat/rooms/" + roomID.String() + "/stream"
	req, err := c.newRequest(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any per-request timeout on the shared client.
	streaming := *c.http
	streaming.Timeout = 0
	resp, err := streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return &Stream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// Next blocks until the next event. It returns io.EOF when the server ends the stream.
func (s *Stream) Next() (Event, error) {
	var (
		ev   Event
		data [][]byte
	)
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return Event{}, io.EOF
			}
			if err != io.EOF {
				return Event{}, fmt.Errorf("%w: read stream: %w", ErrTransport, err)
			}
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) > 0 {
				if ev.Name == "" {
					ev.Name = EventMessage
				}
				ev.Data = bytes.Join(data, []byte("\n"))
				return ev, nil
			}
			ev = Event{}
			if err == io.EOF {
				return Event{}, io.EOF
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data = append(data, []byte(value))
		}
		if err == io.EOF {
			return Event{}, io.EOF
		}
	}
}

func (s *Stream) Close() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}
