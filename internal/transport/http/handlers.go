package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nadzzz/ovida/internal/message"
	"github.com/nadzzz/ovida/internal/objectstore"
	"github.com/nadzzz/ovida/internal/room"
	"github.com/nadzzz/ovida/internal/run"
	"github.com/nadzzz/ovida/internal/transport"
)

type handlers struct {
	svc     transport.Service
	hub     *room.Hub
	signer  *objectstore.Signer
	objects objectstore.Downloader
}

// synthesize renders one narration through the selected engine.
//
// @Summary     Synthesize narration
// @Description Chooses an engine from the deployment flags, the request mode and the story voice policy,
// @Description then renders the text. The result is tagged "files" (audio URLs) or "stream" (realtime session).
// @Tags        audio
// @Accept      json
// @Produce     json
// @Param       request  body      message.SynthesizeRequest   true  "Narration and synthesis options"
// @Success     200      {object}  message.SynthesizeResponse  "Engine decision and tagged result"
// @Failure     400      {object}  message.ErrorResponse
// @Failure     429      {object}  message.ErrorResponse
// @Failure     500      {object}  message.ErrorResponse
// @Router      /v1/synthesize [post]
func (h *handlers) synthesize(w http.ResponseWriter, r *http.Request) {
	var req message.SynthesizeRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Synthesize(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// listStories returns the story catalog.
//
// @Summary  List stories
// @Tags     stories
// @Produce  json
// @Success  200  {object}  message.StoriesResponse
// @Router   /v1/stories [get]
func (h *handlers) listStories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message.StoriesResponse{Stories: h.svc.Stories()})
}

// @Summary  Create a run
// @Tags     runs
// @Accept   json
// @Produce  json
// @Param    request  body      message.CreateRunRequest  true  "Story and optional seed"
// @Success  200      {object}  message.RunResponse
// @Failure  400      {object}  message.ErrorResponse
// @Failure  404      {object}  message.ErrorResponse
// @Router   /v1/runs [post]
func (h *handlers) createRun(w http.ResponseWriter, r *http.Request) {
	var req message.CreateRunRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.svc.CreateRun(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.RunResponse{Run: created})
}

// @Summary  Get a run
// @Tags     runs
// @Produce  json
// @Param    id   path      string  true  "Run ID"
// @Success  200  {object}  message.RunResponse
// @Failure  404  {object}  message.ErrorResponse
// @Router   /v1/runs/{id} [get]
func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	got, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.RunResponse{Run: got})
}

// nextBeat narrates the next beat of a run to files and advances the run.
//
// @Summary     Narrate the next beat
// @Description Uses ?index= when given, else the run's next beat index. Run beats are always rendered to files.
// @Tags        runs
// @Produce     json
// @Param       id     path      string  true   "Run ID"
// @Param       index  query     int     false  "Beat index override"
// @Success     200    {object}  message.BeatResponse
// @Failure     400    {object}  message.ErrorResponse
// @Failure     404    {object}  message.ErrorResponse
// @Failure     500    {object}  message.ErrorResponse
// @Router      /v1/runs/{id}/next [post]
func (h *handlers) nextBeat(w http.ResponseWriter, r *http.Request) {
	var index *int
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer", "INVALID_REQUEST"))
			return
		}
		index = &n
	}

	resp, err := h.svc.NextBeat(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary  Get the signed replay of a run
// @Tags     runs
// @Produce  json
// @Param    id   path      string  true  "Run ID"
// @Success  200  {object}  message.ReplayResponse
// @Failure  404  {object}  message.ErrorResponse
// @Router   /v1/runs/{id}/replay [get]
func (h *handlers) replay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.svc.Replay(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.ReplayResponse{ID: id, Replay: doc})
}

// verifyReplay checks a replay document passed as JSON in ?replay=.
//
// @Summary  Verify a replay document
// @Tags     runs
// @Produce  json
// @Param    id      path      string  true  "Replay ID"
// @Param    replay  query     string  true  "Replay document (JSON)"
// @Success  200     {object}  message.VerifyResponse
// @Failure  400     {object}  message.VerifyResponse
// @Router   /v1/replays/{id}/verify [get]
func (h *handlers) verifyReplay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var doc run.Replay
	if err := json.Unmarshal([]byte(r.URL.Query().Get("replay")), &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, message.VerifyResponse{ID: id, Error: "invalid replay json: " + err.Error()})
		return
	}
	if err := h.svc.VerifyReplay(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, message.VerifyResponse{ID: id, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message.VerifyResponse{ID: id, Valid: true})
}

// @Summary  Create a room
// @Tags     rooms
// @Accept   json
// @Produce  json
// @Param    request  body      message.CreateRoomRequest  true  "Story, run and mode (duo, party, global)"
// @Success  200      {object}  message.RoomResponse
// @Failure  400      {object}  message.ErrorResponse
// @Failure  404      {object}  message.ErrorResponse
// @Router   /v1/rooms [post]
func (h *handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var req message.CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}
	rm, err := h.svc.CreateRoom(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.RoomResponse{Room: rm})
}

// startLiveBeat narrates a beat into a room and broadcasts the audio event.
//
// @Summary     Start a live room beat
// @Description Selects the engine in room-live mode. Participants receive room.beat, then
// @Description AUDIO_STREAM_START (realtime session) or AUDIO_START (file URLs).
// @Tags        rooms
// @Accept      json
// @Produce     json
// @Param       id       path      string                   true  "Room ID"
// @Param       request  body      message.LiveBeatRequest  true  "Beat index and optional narration"
// @Success     200      {object}  message.LiveBeatResponse
// @Failure     400      {object}  message.ErrorResponse
// @Failure     404      {object}  message.ErrorResponse
// @Failure     500      {object}  message.ErrorResponse
// @Router      /v1/rooms/{id}/beats [post]
func (h *handlers) startLiveBeat(w http.ResponseWriter, r *http.Request) {
	var req message.LiveBeatRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.svc.StartLiveBeat(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// finalizeLiveBeat renders a live beat to files for the replay.
//
// @Summary  Finalize a live beat to the replay
// @Tags     rooms
// @Accept   json
// @Produce  json
// @Param    id       path      string                   true  "Room ID"
// @Param    request  body      message.LiveBeatRequest  true  "Beat index and optional narration"
// @Success  200      {object}  object                   "Files result"
// @Failure  404      {object}  message.ErrorResponse
// @Failure  500      {object}  message.ErrorResponse
// @Router   /v1/rooms/{id}/finalize [post]
func (h *handlers) finalizeLiveBeat(w http.ResponseWriter, r *http.Request) {
	var req message.LiveBeatRequest
	if !decode(w, r, &req) {
		return
	}
	files, err := h.svc.FinalizeLiveBeat(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// roomSocket upgrades to the room WebSocket.
//
// @Summary     Join a room over WebSocket
// @Description Clients send room.join, room.vote and room.leave frames and receive room.state,
// @Description room.result, room.beat and audio events.
// @Tags        rooms
// @Param       id   path  string  true  "Room ID"
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     404  {object}  message.ErrorResponse
// @Router      /v1/rooms/{id}/ws [get]
func (h *handlers) roomSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("room relay disabled", "UNAVAILABLE"))
		return
	}
	rm, err := h.svc.GetRoom(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.hub.ServeWS(w, r, rm.ID)
}

// audioObject serves a cached audio object behind a signed URL.
//
// @Summary  Fetch rendered audio
// @Tags     audio
// @Produce  octet-stream
// @Param    key  path   string  true  "Object key"
// @Param    exp  query  int     true  "Expiry (unix seconds)"
// @Param    sig  query  string  true  "Signature"
// @Success  200  {file}    binary
// @Failure  403  {object}  message.ErrorResponse
// @Failure  404  {object}  message.ErrorResponse
// @Failure  410  {object}  message.ErrorResponse
// @Router   /v1/audio/{key} [get]
func (h *handlers) audioObject(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil || h.objects == nil {
		writeJSON(w, http.StatusNotFound, errorBody("audio is not served by this instance", "NOT_FOUND"))
		return
	}

	key := r.PathValue("key")
	q := r.URL.Query()
	if err := h.signer.Verify(key, q.Get("exp"), q.Get("sig")); err != nil {
		status, code := http.StatusForbidden, "BAD_SIGNATURE"
		if errors.Is(err, objectstore.ErrExpired) {
			status, code = http.StatusGone, "EXPIRED"
		}
		writeJSON(w, status, errorBody(err.Error(), code))
		return
	}

	data, contentType, err := h.objects.Download(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing audio failed", "key", key, "error", err)
	}
}
