package audio

import (
	"encoding/json"
	"fmt"

	"github.com/nadzzz/ovida/internal/soundstage"
)

// Kind tags the result variant on the wire.
type Kind string

const (
	KindFiles  Kind = "files"
	KindStream Kind = "stream"
)

// NarratorProfile describes how the narration should sound.
type NarratorProfile struct {
	Voice     string `json:"voice"`
	Style     string `json:"style"`
	Tempo     string `json:"tempo"`
	Treatment string `json:"treatment"`
}

// Result is the outcome of one synthesis call. It is either *FilesResult or
// *StreamResult; use Match to branch on the variant.
type Result interface {
	Kind() Kind
	ProviderName() string
	Plan() soundstage.Plan
	NarratorProfile() NarratorProfile

	sealed()
}

// FilesResult carries pre-rendered audio, in narration order.
type FilesResult struct {
	Provider   string          `json:"provider"`
	URLs       []string        `json:"urls"`
	MIME       string          `json:"mime"`
	Soundstage soundstage.Plan `json:"soundstage"`
	Narrator   NarratorProfile `json:"narrator"`
}

// Session describes a live realtime voice session.
type Session struct {
	ClientSecret           string          `json:"client_secret,omitempty"`
	ExpiresAt              int64           `json:"expires_at,omitempty"`
	Model                  string          `json:"model"`
	Voice                  string          `json:"voice"`
	APIBase                string          `json:"api_base"`
	SDPOffer               string          `json:"sdp_offer,omitempty"`
	ICEServers             json.RawMessage `json:"ice_servers,omitempty"`
	ConnectionInstructions string          `json:"connection_instructions"`
}

// StreamResult carries a realtime session descriptor. It never has files.
type StreamResult struct {
	Provider   string          `json:"provider"`
	Session    Session         `json:"session"`
	Soundstage soundstage.Plan `json:"soundstage"`
	Narrator   NarratorProfile `json:"narrator"`
}

func (*FilesResult) Kind() Kind { return KindFiles }

func (r *FilesResult) ProviderName() string { return r.Provider }

func (r *FilesResult) Plan() soundstage.Plan { return r.Soundstage }

func (r *FilesResult) NarratorProfile() NarratorProfile { return r.Narrator }

func (*FilesResult) sealed() {}

func (*StreamResult) Kind() Kind { return KindStream }

func (r *StreamResult) ProviderName() string { return r.Provider }

func (r *StreamResult) Plan() soundstage.Plan { return r.Soundstage }

func (r *StreamResult) NarratorProfile() NarratorProfile { return r.Narrator }

func (*StreamResult) sealed() {}

// MarshalJSON adds the "kind" tag.
func (r *FilesResult) MarshalJSON() ([]byte, error) {
	type plain FilesResult
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		*plain
	}{KindFiles, (*plain)(r)})
}

// MarshalJSON adds the "kind" tag.
func (r *StreamResult) MarshalJSON() ([]byte, error) {
	type plain StreamResult
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		*plain
	}{KindStream, (*plain)(r)})
}

// Match calls exactly one of onFiles or onStream depending on the variant.
// It panics on a nil result.
func Match[T any](r Result, onFiles func(*FilesResult) T, onStream func(*StreamResult) T) T {
	switch v := r.(type) {
	case *FilesResult:
		return onFiles(v)
	case *StreamResult:
		return onStream(v)
	default:
		panic(fmt.Sprintf("audio: unexpected result %T", r))
	}
}

// MockProvider names the placeholder result.
const MockProvider = "mock"

// MockMIME is the MIME type of the placeholder audio.
const MockMIME = "audio/ogg; codecs=vorbis"

var mockURLs = []string{
	"https://upload.wikimedia.org/wikipedia/commons/3/3c/Beep-09.ogg",
	"https://upload.wikimedia.org/wikipedia/commons/0/0f/Beep-sound.ogg",
}

// MockResult is the fixed placeholder returned when a file backend is
// unconfigured or produced no audio.
func MockResult(plan soundstage.Plan, narrator NarratorProfile) *FilesResult {
	return &FilesResult{
		Provider:   MockProvider,
		URLs:       append([]string(nil), mockURLs...),
		MIME:       MockMIME,
		Soundstage: plan,
		Narrator:   narrator,
	}
}
