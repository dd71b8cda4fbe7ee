package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	streamDataPrefix = "data: "
	streamDoneToken  = "[DONE]"
	streamReadSize   = 4096
)

// streamFrame is the payload of one "data: " line. Content is a pointer so an
// absent or null field is distinct from an empty string.
type streamFrame struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (f streamFrame) delta() (string, bool) {
	if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
		return "", false
	}
	content := *f.Choices[0].Delta.Content
	return content, content != ""
}

func (f streamFrame) finishReason() string {
	if len(f.Choices) == 0 || f.Choices[0].FinishReason == nil {
		return ""
	}
	return *f.Choices[0].FinishReason
}

// Decoder assembles an assistant message from a chat-completion event stream.
// Input may be split at arbitrary byte positions; only complete lines are
// interpreted and the trailing partial line is carried to the next Write.
type Decoder struct {
	handle StreamHandler

	pending      []byte
	content      strings.Builder
	model        string
	finishReason string
	done         bool
	err          error
}

func NewDecoder(handle StreamHandler) *Decoder {
	return &Decoder{handle: handle}
}

// Write feeds one chunk of the response body. Bytes that arrive after the
// [DONE] sentinel are discarded.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.done {
		return len(p), nil
	}
	d.pending = append(d.pending, p...)
	for !d.done {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		line := string(d.pending[:idx])
		d.pending = d.pending[idx+1:]
		if err := d.processLine(line); err != nil {
			d.err = err
			return 0, err
		}
	}
	if d.done {
		d.pending = nil
	}
	return len(p), nil
}

// Flush is called once the transport is exhausted. A final line without a
// terminating newline is still processed.
func (d *Decoder) Flush() error {
	if d.err != nil {
		return d.err
	}
	if d.done || len(d.pending) == 0 {
		d.pending = nil
		return nil
	}
	line := string(d.pending)
	d.pending = nil
	if err := d.processLine(line); err != nil {
		d.err = err
		return err
	}
	return nil
}

// ReadFrom drives the decoder over r until [DONE], EOF or an error. Read
// failures are reported as *TransportError.
func (d *Decoder) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, streamReadSize)
	var total int64
	for !d.done {
		n, readErr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if _, err := d.Write(buf[:n]); err != nil {
				return total, err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return total, d.Flush()
			}
			return total, &TransportError{Op: "read stream", Err: readErr}
		}
	}
	return total, nil
}

func (d *Decoder) Done() bool {
	return d.done
}

func (d *Decoder) Content() string {
	return d.content.String()
}

func (d *Decoder) Message() Message {
	return NewMessage(RoleAssistant, d.content.String())
}

func (d *Decoder) Response() ChatResponse {
	return ChatResponse{
		Message:      d.Message(),
		Model:        d.model,
		FinishReason: d.finishReason,
	}
}

func (d *Decoder) processLine(raw string) error {
	line := strings.TrimSpace(raw)
	if !strings.HasPrefix(line, streamDataPrefix) {
		return nil
	}
	payload := strings.TrimPrefix(line, streamDataPrefix)
	if payload == streamDoneToken {
		d.done = true
		return nil
	}
	var frame streamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return &DecodeError{Line: line, Err: err}
	}
	if frame.Error != nil {
		return &ProtocolError{Reason: "upstream error in stream: " + frame.Error.Message}
	}
	if frame.Model != "" {
		d.model = frame.Model
	}
	if reason := frame.finishReason(); reason != "" {
		d.finishReason = reason
	}
	delta, ok := frame.delta()
	if !ok {
		return nil
	}
	d.content.WriteString(delta)
	if d.handle != nil {
		return d.handle(delta)
	}
	return nil
}
