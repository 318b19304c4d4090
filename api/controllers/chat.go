package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/api/responses"
	"github.com/medok/medok-backend/api/validators"
	"github.com/medok/medok-backend/internal/chat"
	pkgerrors "github.com/medok/medok-backend/pkg/errors"
	"github.com/medok/medok-backend/pkg/logger"
)

// RoomStreamer relays a room's live messages to an SSE response.
type RoomStreamer interface {
	Stream(ctx context.Context, w http.ResponseWriter, roomID uuid.UUID) error
}

func ChatRooms(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("chat service"))
			return
		}
		rooms, err := svc.Rooms(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rooms)
	}
}

func ChatMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("chat service"))
			return
		}
		roomID, err := validators.ParseUUIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		messages, err := svc.Messages(r.Context(), roomID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, messages)
	}
}

func ChatSend(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("chat service"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roomID, err := validators.ParseUUIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req chat.SendMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, err := svc.Send(r.Context(), userID, roomID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// ChatStream holds the connection open and relays room messages as Server-Sent Events.
func ChatStream(streamer RoomStreamer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if streamer == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("realtime relay"))
			return
		}
		roomID, err := validators.ParseUUIDParam(r, "roomId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tw := &trackingWriter{ResponseWriter: w}
		if err := streamer.Stream(r.Context(), tw, roomID); err != nil {
			if !tw.wroteHeader {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open room stream"))
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "room_id", roomID.String()), "room stream ended: "+err.Error())
			}
		}
	}
}

// trackingWriter remembers whether the stream already committed its headers.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.wroteHeader = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.wroteHeader = true
	return t.ResponseWriter.Write(b)
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
