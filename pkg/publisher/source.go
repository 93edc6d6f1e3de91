package publisher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
	"github.com/teslashibe/go-moodlight/pkg/transport"
)

// ParseRaw reads one raw classifier label. The payload is either the bare
// label or a JSON object with an "emotion" field. Unrecognised names are
// returned as-is so they count as 0 in the window; empty input reports
// false.
func ParseRaw(payload []byte) (emotions.Label, bool) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return "", false
	}

	if strings.HasPrefix(text, "{") {
		var msg struct {
			Emotion string `json:"emotion"`
		}
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return "", false
		}
		text = strings.TrimSpace(msg.Emotion)
		if text == "" {
			return "", false
		}
	}

	if l, ok := emotions.ParseLabel(text); ok {
		return l, true
	}
	return emotions.Label(text), true
}

// ReadLabels sends one label per non-blank line of r to out, then closes
// out. It returns when r is exhausted or ctx is done.
func ReadLabels(ctx context.Context, r io.Reader, out chan<- emotions.Label) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l, ok := ParseRaw(scanner.Bytes())
		if !ok {
			continue
		}
		select {
		case out <- l:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read labels: %w", err)
	}
	return nil
}

// FromMessages sends the label of each message to out, then closes out.
// It returns when ctx is done or done is closed. Payloads without a label
// are skipped.
func FromMessages(ctx context.Context, msgs <-chan transport.Message, done <-chan struct{}, out chan<- emotions.Label) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg := <-msgs:
			l, ok := ParseRaw(msg.Payload)
			if !ok {
				continue
			}
			select {
			case out <- l:
			case <-ctx.Done():
				return
			}
		}
	}
}
