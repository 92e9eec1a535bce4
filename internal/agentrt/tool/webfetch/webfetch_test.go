package webfetch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func execute(t *testing.T, url string) (*model.ToolOutput, error) {
	t.Helper()
	raw, err := json.Marshal(Params{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	return NewTool().Execute(context.Background(), model.ToolContext{}, raw)
}

func TestMetadataEndpointIsSecurityViolation(t *testing.T) {
	_, err := execute(t, "http://169.254.169.254/latest/meta-data/")
	if err == nil {
		t.Fatal("expected link-local metadata address to be refused")
	}
	if !errtype.Is(err, errtype.KindSecurityViolation) {
		t.Fatalf("expected security violation, got %v", err)
	}
}

func TestLocalhostIsSecurityViolation(t *testing.T) {
	_, err := execute(t, "https://localhost:443/")
	if err == nil {
		t.Fatal("expected localhost to be refused")
	}
	if !errtype.Is(err, errtype.KindSecurityViolation) {
		t.Fatalf("expected security violation, got %v", err)
	}
}

func TestNonHTTPSchemeIsSecurityViolation(t *testing.T) {
	_, err := execute(t, "file:///etc/passwd")
	if err == nil {
		t.Fatal("expected file scheme to be refused")
	}
	if !errtype.Is(err, errtype.KindSecurityViolation) {
		t.Fatalf("expected security violation, got %v", err)
	}
}

func TestMalformedParamsIsToolError(t *testing.T) {
	out, err := NewTool().Execute(context.Background(), model.ToolContext{}, json.RawMessage(`{`))
	if err != nil {
		t.Fatalf("malformed params should be a tool-level error, got %v", err)
	}
	if !out.IsError {
		t.Fatal("expected IsError for malformed params")
	}
}
