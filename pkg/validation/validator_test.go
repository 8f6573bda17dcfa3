package validation

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestValidateNodeRequest(t *testing.T) {
	tests := []struct {
		name        string
		req         NodeRequest
		expectError bool
		errorField  string
	}{
		{
			name: "Valid generic node",
			req:  NodeRequest{Kind: "generic", Title: "Goal"},
		},
		{
			name: "Valid agent at position",
			req: NodeRequest{
				Kind:    "document-agent",
				X:       ptr(120.0),
				Y:       ptr(40.0),
				Payload: map[string]any{"documentIds": []any{"d1", "d2"}},
			},
		},
		{
			name:        "Missing kind",
			req:         NodeRequest{Title: "x"},
			expectError: true,
			errorField:  "Kind",
		},
		{
			name:        "Unknown kind",
			req:         NodeRequest{Kind: "spaceship"},
			expectError: true,
			errorField:  "Kind",
		},
		{
			name:        "X without Y",
			req:         NodeRequest{Kind: "generic", X: ptr(1.0)},
			expectError: true,
			errorField:  "Y",
		},
		{
			name:        "Title too long",
			req:         NodeRequest{Kind: "generic", Title: strings.Repeat("a", 201)},
			expectError: true,
			errorField:  "Title",
		},
		{
			name:        "Bad payload key",
			req:         NodeRequest{Kind: "generic", Payload: map[string]any{"1bad": true}},
			expectError: true,
			errorField:  "Payload",
		},
		{
			name:        "Document ids not strings",
			req:         NodeRequest{Kind: "document-agent", Payload: map[string]any{"documentIds": []any{1}}},
			expectError: true,
			errorField:  "Payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeRequest(&tt.req)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorField) {
					t.Errorf("error %q does not mention %s", err, tt.errorField)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateNodePatchRequest(t *testing.T) {
	if err := ValidateNodePatchRequest(&NodePatchRequest{}); err == nil {
		t.Error("empty patch accepted")
	}
	if err := ValidateNodePatchRequest(&NodePatchRequest{Title: ptr("Renamed")}); err != nil {
		t.Errorf("rename rejected: %v", err)
	}
	if err := ValidateNodePatchRequest(nil); err == nil {
		t.Error("nil patch accepted")
	}
}

func TestStructRequests(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{"pointer down", &PointerRequest{Type: "down", X: 10, Y: 20}, ""},
		{"pointer bad type", &PointerRequest{Type: "hover"}, "must be one of"},
		{"wheel", &WheelRequest{Factor: 1.1}, ""},
		{"wheel zero factor", &WheelRequest{}, "greater than 0"},
		{"connection", &ConnectionRequest{From: "a", To: "b"}, ""},
		{"connection missing to", &ConnectionRequest{From: "a"}, "To: field is required"},
		{"layout", &LayoutRequest{Algorithm: "force"}, ""},
		{"layout unknown", &LayoutRequest{Algorithm: "spiral"}, "must be one of"},
		{"view reset", &ViewRequest{Action: "reset"}, ""},
		{"view zoom", &ViewRequest{Action: "zoom", Factor: 1.5}, ""},
		{"view zoom without factor", &ViewRequest{Action: "zoom"}, "Factor: field is required"},
		{"view negative width", &ViewRequest{Action: "fit", Width: -1}, "must be at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePayloadKey(t *testing.T) {
	valid := []string{"model", "_private", "documentIds", "a1"}
	for _, k := range valid {
		if err := ValidatePayloadKey(k); err != nil {
			t.Errorf("%q rejected: %v", k, err)
		}
	}
	invalid := []string{"", "1a", "has space", "dash-key", strings.Repeat("k", 101)}
	for _, k := range invalid {
		if err := ValidatePayloadKey(k); err == nil {
			t.Errorf("%q accepted", k)
		}
	}
}
