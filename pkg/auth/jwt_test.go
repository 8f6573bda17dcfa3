package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func newManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, "strategy-canvas", 15*time.Minute)
	if err != nil {
		t.Fatalf("Failed to create JWT manager: %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager("short", "", time.Minute); !errors.Is(err, ErrShortSecret) {
		t.Errorf("short secret: got %v, want ErrShortSecret", err)
	}
	if _, err := NewJWTManager(testSecret, "", 0); err == nil {
		t.Error("zero duration accepted")
	}
}

func TestJWTManager_GenerateToken(t *testing.T) {
	m := newManager(t)

	tests := []struct {
		name      string
		userID    string
		username  string
		role      string
		wantError error
	}{
		{"Valid editor", "user123", "alice", RoleEditor, nil},
		{"Valid viewer", "user456", "bob", RoleViewer, nil},
		{"Empty userID", "", "charlie", RoleEditor, ErrEmptyUserID},
		{"Empty username", "user789", "", RoleEditor, ErrEmptyUsername},
		{"Empty role", "user101", "dave", "", ErrEmptyRole},
		{"Unknown role", "user102", "erin", "owner", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.GenerateToken(tt.userID, tt.username, tt.role)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("error = %v, want %v", err, tt.wantError)
				}
				if token != "" {
					t.Errorf("Expected empty token on error, got %s", token)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			claims, err := m.ValidateToken(context.Background(), token)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.UserID != tt.userID || claims.Username != tt.username || claims.Role != tt.role {
				t.Errorf("claims = %+v", claims)
			}
			if claims.Issuer != "strategy-canvas" {
				t.Errorf("issuer = %q", claims.Issuer)
			}
		})
	}
}

func TestJWTManager_ValidateToken(t *testing.T) {
	m := newManager(t)
	good, err := m.GenerateToken("u1", "alice", RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewJWTManager("another-secret-key-that-is-32-characters", "strategy-canvas", time.Minute)
	foreign, _ := other.GenerateToken("u1", "alice", RoleAdmin)

	otherIssuer, _ := NewJWTManager(testSecret, "someone-else", time.Minute)
	wrongIss, _ := otherIssuer.GenerateToken("u1", "alice", RoleAdmin)

	expiring := newManager(t)
	expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiring.GenerateToken("u1", "alice", RoleAdmin)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", good, nil},
		{"empty", "", ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"wrong issuer", wrongIss, ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(context.Background(), tt.token)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaimsCanEdit(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleEditor, true},
		{RoleViewer, false},
	}
	for _, tt := range tests {
		if got := (&Claims{Role: tt.role}).CanEdit(); got != tt.want {
			t.Errorf("CanEdit(%s) = %v, want %v", tt.role, got, tt.want)
		}
	}
	var nilClaims *Claims
	if nilClaims.CanEdit() {
		t.Error("nil claims can edit")
	}
}

func TestCompositeTokenValidator(t *testing.T) {
	oldKey, _ := NewJWTManager("rotated-out-secret-that-is-32-characters", "strategy-canvas", time.Minute)
	current := newManager(t)
	legacy, _ := oldKey.GenerateToken("u2", "bob", RoleViewer)

	c := NewCompositeTokenValidator(current)
	if _, err := c.ValidateToken(context.Background(), legacy); err == nil {
		t.Fatal("legacy token accepted before the old key was added")
	}
	c.AddValidator(oldKey)
	claims, err := c.ValidateToken(context.Background(), legacy)
	if err != nil {
		t.Fatalf("legacy token rejected: %v", err)
	}
	if claims.UserID != "u2" {
		t.Errorf("user = %q", claims.UserID)
	}

	if _, err := NewCompositeTokenValidator().ValidateToken(context.Background(), legacy); !errors.Is(err, ErrNoValidatorMatched) {
		t.Errorf("empty composite: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	m := newManager(t)
	token, _ := m.GenerateToken("u1", "alice", RoleEditor)

	tests := []struct {
		name    string
		header  string
		query   string
		wantErr error
	}{
		{"header", "Bearer " + token, "", nil},
		{"lowercase scheme", "bearer " + token, "", nil},
		{"query parameter", "", "?access_token=" + token, nil},
		{"missing", "", "", ErrMissingToken},
		{"basic scheme", "Basic abc", "", ErrInvalidToken},
		{"no token", "Bearer ", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/canvases/c1"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			claims, err := Authenticate(r, m)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ctx := WithClaims(r.Context(), claims)
			if UserID(ctx) != "u1" {
				t.Errorf("UserID = %q", UserID(ctx))
			}
		})
	}

	if UserID(context.Background()) != "" {
		t.Error("anonymous context has a user")
	}
}
