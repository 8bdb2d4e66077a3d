package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		SessionID: "sess-001",
		Seq:       3,
		Node:      "draft",
		Msg:       "node finished",
		Meta:      map[string]any{"next": "safety"},
	})

	out := buf.String()
	for _, want := range []string{"[node finished]", "session=sess-001", "seq=3", "node=draft", `"next":"safety"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with newline")
	}
}

func TestLogEmitterTextWithoutMeta(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{SessionID: "sess-001", Seq: 1, Node: "classify", Msg: "node finished"})

	if strings.Contains(buf.String(), "meta=") {
		t.Errorf("empty meta should be omitted: %s", buf.String())
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		SessionID: "sess-001",
		Seq:       2,
		Node:      "safety",
		Msg:       "session paused",
		Meta:      map[string]any{"status": "paused"},
	})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.SessionID != "sess-001" || decoded.Seq != 2 || decoded.Node != "safety" {
		t.Errorf("event did not round-trip: %+v", decoded)
	}
	if decoded.Meta["status"] != "paused" {
		t.Errorf("meta did not round-trip: %+v", decoded.Meta)
	}
}

func TestLogEmitterNilWriterDefaultsToStdout(t *testing.T) {
	emitter := NewLogEmitter(nil, false)
	if emitter.writer == nil {
		t.Error("nil writer should default to stdout")
	}
}

func TestNullEmitter(t *testing.T) {
	// Must simply not panic.
	NewNullEmitter().Emit(Event{SessionID: "sess-001", Msg: "anything"})
}
