package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogEmitter implements Emitter by writing structured output to a writer.
//
// Supports two output modes:
//   - Text mode (default): human-readable format with key=value pairs
//   - JSON mode: machine-readable JSONL, one event per line
//
// Example text output:
//
//	[node finished] session=sess-001 seq=3 node=draft meta={"next":"safety"}
//
// Example JSON output:
//
//	{"session_id":"sess-001","seq":3,"node":"draft","msg":"node finished","meta":{"next":"safety"}}
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a new LogEmitter.
//
// writer defaults to os.Stdout when nil. Set jsonMode for JSONL output.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

// Emit writes an event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] session=%s seq=%d node=%s",
		event.Msg, event.SessionID, event.Seq, event.Node)

	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	fmt.Fprint(l.writer, "\n")
}
