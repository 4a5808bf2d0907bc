package local

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wyoming frames each event as
//
//	<json_length> <payload_length>\n
//	<json>\n
//	<payload>
type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	header, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(header), len(payload))
	buf.Write(header)
	buf.WriteByte('\n')
	buf.Write(payload)

	_, err = w.Write(buf.Bytes())
	return err
}

// Wyoming frames larger than these are rejected.
const (
	maxEventJSON    = 1 << 20
	maxEventPayload = 16 << 20
)

func readEvent(r *bufio.Reader) (*event, []byte, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", strings.TrimSpace(line))
	}
	jsonLen, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json length: %w", err)
	}
	payloadLen, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload length: %w", err)
	}
	if jsonLen < 0 || jsonLen > maxEventJSON {
		return nil, nil, fmt.Errorf("invalid wyoming json length %d", jsonLen)
	}
	if payloadLen < 0 || payloadLen > maxEventPayload {
		return nil, nil, fmt.Errorf("invalid wyoming payload length %d", payloadLen)
	}

	raw := make([]byte, jsonLen+1)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("reading event json: %w", err)
	}

	var evt event
	if err := json.Unmarshal(raw[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("decoding event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

// pcmFormat describes raw PCM as announced by audio-start.
type pcmFormat struct {
	rate     int
	channels int
	width    int // bytes per sample
}

func (f *pcmFormat) update(data map[string]any) {
	if v, ok := data["rate"].(float64); ok {
		f.rate = int(v)
	}
	if v, ok := data["channels"].(float64); ok {
		f.channels = int(v)
	}
	if v, ok := data["width"].(float64); ok {
		f.width = int(v)
	}
}

// wav wraps pcm in a 44-byte RIFF/WAVE header.
func (f pcmFormat) wav(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(1))
	_ = binary.Write(&buf, le, uint16(f.channels))
	_ = binary.Write(&buf, le, uint32(f.rate))
	_ = binary.Write(&buf, le, uint32(f.rate*f.channels*f.width))
	_ = binary.Write(&buf, le, uint16(f.channels*f.width))
	_ = binary.Write(&buf, le, uint16(f.width*8))
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
