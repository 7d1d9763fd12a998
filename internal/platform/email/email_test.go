package email

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRenderConfirmationCode(t *testing.T) {
	body, err := RenderConfirmationCode("482913", 10)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "482913") {
		t.Error("expected body to contain the code")
	}
	if !strings.Contains(body, "10 minutes") {
		t.Error("expected body to mention the TTL")
	}
}

func TestRenderPasswordReset(t *testing.T) {
	body, err := RenderPasswordReset("https://app.example.com/reset?token=abc", 30)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "https://app.example.com/reset?token=abc") {
		t.Error("expected body to contain the reset link")
	}
}

func TestRenderPasswordReset_EscapesLink(t *testing.T) {
	body, err := RenderPasswordReset(`https://x.test/?a="><script>`, 30)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("expected link to be escaped")
	}
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zerolog.Nop())
	if err := s.Send(context.Background(), "ada@example.com", "hi", "<p>hi</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}
}
