package handler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"signalboard/internal/domain"
)

func TestSessionCodecRoundTrip(t *testing.T) {
	sc := NewSessionCodec("test-secret", time.Hour)
	ident := domain.Identity{
		UserID:      "U1",
		DisplayName: "alice",
		AvatarURL:   "https://cdn/avatar.png",
		AccessToken: "platform-token",
	}

	token, err := sc.Issue(ident)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := sc.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ident {
		t.Fatalf("identity did not survive the round trip: %+v", got)
	}
}

func TestSessionCodecRejectsTamperedToken(t *testing.T) {
	sc := NewSessionCodec("test-secret", time.Hour)
	token, err := sc.Issue(domain.Identity{UserID: "U1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := sc.Verify(tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionCodecRejectsWrongSecret(t *testing.T) {
	issued, err := NewSessionCodec("secret-a", time.Hour).Issue(domain.Identity{UserID: "U1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewSessionCodec("secret-b", time.Hour).Verify(issued); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionCodecRejectsEmptySubject(t *testing.T) {
	sc := NewSessionCodec("test-secret", time.Hour)
	token, err := sc.Issue(domain.Identity{DisplayName: "no-id"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := sc.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty subject, got %v", err)
	}
}

func TestSessionCodecRejectsGarbage(t *testing.T) {
	sc := NewSessionCodec("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-jwt", strings.Repeat("a.", 3)} {
		if _, err := sc.Verify(tok); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
}
