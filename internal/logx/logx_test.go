package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithSessionAddsFields(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithSession(ctx, schema.SessionContext{Namespace: schema.NamespaceAuthenticated, AccountEmail: "a@example.com"})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["namespace"] != "authenticated" {
		t.Fatalf("expected namespace field, got %+v", entry)
	}
	if entry["account"] != "a@example.com" {
		t.Fatalf("expected account field, got %+v", entry)
	}
}

func TestWithSessionGuestOmitsAccount(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	WithSession(ctx, schema.SessionContext{Namespace: schema.NamespaceGuest}).Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["account"]; ok {
		t.Fatalf("did not expect account for guest, got %+v", entry)
	}
}

func TestWithTabSkipsNoTab(t *testing.T) {
	capture := &logCapture{}
	log := WithTab(newCaptureLogger(capture), schema.NoTab)
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["tab"]; ok {
		t.Fatalf("did not expect tab field, got %+v", entry)
	}
}

func TestContextMarkersDeduplicate(t *testing.T) {
	capture := &logCapture{}
	session := schema.SessionContext{Namespace: schema.NamespaceGuest}
	base := newCaptureLogger(capture).With("namespace", "guest")
	ctx := ContextWithSessionLogger(context.Background(), base, session)
	WithSession(ctx, session).Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte(`"namespace"`)) != 1 {
		t.Fatalf("expected a single namespace field, got %s", line)
	}
	if ns, _ := ctx.Value(namespaceKey).(schema.Namespace); ns != schema.NamespaceGuest {
		t.Fatalf("expected namespace marker on context")
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
