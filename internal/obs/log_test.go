package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLogRequestTagsService(t *testing.T) {
	logger := Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	LogRequest(map[string]any{"method": "GET", "path": "/health", "status": 200})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["service"] != serviceName {
		t.Fatalf("unexpected service tag: %v", entry["service"])
	}
	if entry["path"] != "/health" {
		t.Fatalf("unexpected path: %v", entry["path"])
	}
}
