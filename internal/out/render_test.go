package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tradetok/copytrade/internal/config"
	"github.com/tradetok/copytrade/internal/model"
)

func testEnvelope() model.Envelope {
	return model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data: []model.ActivityView{
			{ID: "a1", Amount: "10", Timestamp: time.Unix(100, 0).UTC()},
			{ID: "a2", Amount: "20", Timestamp: time.Unix(200, 0).UTC()},
		},
		Meta: model.EnvelopeMeta{RequestID: "req-1", Command: "activity"},
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, testEnvelope(), config.Settings{OutputMode: "json"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded model.Envelope
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !decoded.Success || decoded.Version != model.EnvelopeVersion {
		t.Fatalf("decoded envelope = %+v", decoded)
	}
}

func TestRenderPlainOneLinePerItem(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, testEnvelope(), config.Settings{OutputMode: "plain"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want one per item:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "id=a1") || !strings.Contains(lines[0], "amount=10") {
		t.Fatalf("line = %q", lines[0])
	}
}

func TestRenderPlainError(t *testing.T) {
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Error:   &model.ErrorBody{Code: 22, Type: "quote_error", Message: "no route"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "plain"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "code=22") || !strings.Contains(buf.String(), "quote_error") {
		t.Fatalf("output = %q", buf.String())
	}
}
