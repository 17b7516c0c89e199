package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/pkg/audio"
	"github.com/minutewire/minutewire/pkg/store/postgres"
)

// startRequest is the body of POST /api/session/start.
type startRequest struct {
	Title string `json:"title"`
}

// sessionResponse is the body of GET /api/session and the start response.
type sessionResponse struct {
	SessionID  uuid.UUID `json:"sessionId"`
	Title      string    `json:"title"`
	StartedAt  time.Time `json:"startedAt"`
	LiveText   string    `json:"liveText,omitempty"`
	Utterances int       `json:"utterances"`
	Speakers   int       `json:"speakers"`
}

// errorResponse is the JSON body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	// An empty body means an untitled meeting; malformed JSON is an error.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := a.manager.Start(r.Context(), req.Title)
	if err != nil {
		if errors.Is(err, ErrSessionActive) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	info := a.manager.Info()
	slog.Info("session started", "session_id", sess.ID(), "title", info.Title)
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: info.SessionID,
		Title:     info.Title,
		StartedAt: info.StartedAt,
	})
}

func (a *App) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	res, err := a.stopAndPersist(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleSessionInfo(w http.ResponseWriter, _ *http.Request) {
	sess := a.manager.Current()
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrNoSession.Error())
		return
	}
	info := a.manager.Info()
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:  info.SessionID,
		Title:      info.Title,
		StartedAt:  info.StartedAt,
		LiveText:   sess.LiveText(),
		Utterances: sess.Meeting().Len(),
		Speakers:   sess.SpeakerCount(),
	})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.manager.Report(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSession):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, intel.ErrTranscriptTooShort):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *App) handleMeetings(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}
	summaries, err := a.store.ListMeetings(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (a *App) handleMeeting(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}
	export, report, err := a.store.GetMeeting(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stopResult{Export: export, Report: report, Persisted: true})
}

// handleIngest upgrades the request to a WebSocket and feeds binary frames
// into the active session. Each binary message is little-endian PCM16 at the
// configured sample rate; interleaved multi-channel input (the "channels"
// query parameter, default 1) is downmixed to mono. Only one ingest
// connection may be active at a time; frames must reach the segmenter from a
// single goroutine.
func (a *App) handleIngest(w http.ResponseWriter, r *http.Request) {
	sess := a.manager.Current()
	if sess == nil {
		writeError(w, http.StatusNotFound, ErrNoSession.Error())
		return
	}

	channels := 1
	if v := r.URL.Query().Get("channels"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 8 {
			writeError(w, http.StatusBadRequest, "channels must be an integer between 1 and 8")
			return
		}
		channels = n
	}
	if !a.ingestBusy.TryLock() {
		writeError(w, http.StatusConflict, "an ingest stream is already connected")
		return
	}
	defer a.ingestBusy.Unlock()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("ingest: websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream ended")

	sampleRate := audio.DefaultSampleRate
	if a.cfg != nil && a.cfg.Audio.SampleRate > 0 {
		sampleRate = a.cfg.Audio.SampleRate
	}

	slog.Info("ingest stream connected",
		"session_id", sess.ID(), "remote", r.RemoteAddr, "channels", channels)
	var elapsed time.Duration
	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				slog.Info("ingest stream closed", "session_id", sess.ID())
			} else {
				slog.Warn("ingest stream error", "session_id", sess.ID(), "error", err)
			}
			return
		}
		if typ != websocket.MessageBinary || len(data) < 2*channels {
			continue
		}

		frame := audio.Frame{
			Samples:    audio.PCM16ToFloat32(data, channels),
			SampleRate: sampleRate,
			Timestamp:  elapsed,
		}
		sess.ProcessFrame(frame)
		elapsed += frame.Duration()
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
