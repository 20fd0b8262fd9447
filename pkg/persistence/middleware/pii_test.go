package middleware_test

import (
	"context"
	"testing"

	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{`[\w.+-]+@[\w-]+\.[\w.]+`, `\d{3}-\d{2}-\d{4}`})
	if err != nil {
		t.Fatal(err)
	}
	secure := mw(underlying)

	ctx := context.Background()
	s := domain.NewSession("pii-session")
	s.Messages = append(s.Messages,
		domain.Message{Role: domain.RoleUser, Content: "mail jdoe@example.com about 999-99-9999"},
		domain.Message{Role: domain.RoleAssistant, Content: "The raven takes jdoe@example.com away."},
	)

	if err := secure.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if s.Messages[0].Content != "mail jdoe@example.com about 999-99-9999" {
		t.Error("Middleware modified the caller's session")
	}

	stored, err := underlying.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if got := stored.Messages[0].Content; got != "mail *** about ***" {
		t.Errorf("Player message should be masked, got: %q", got)
	}
	if got := stored.Messages[1].Content; got != "The raven takes jdoe@example.com away." {
		t.Errorf("Narrator message shouldn't be masked, got: %q", got)
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{"secret"})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlying, pii, enc)

	ctx := context.Background()
	s := domain.NewSession("chained")
	s.Messages = append(s.Messages, domain.Message{Role: domain.RoleUser, Content: "the secret door"})
	if err := store.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded.Messages[0].Content; got != "the *** door" {
		t.Errorf("Expected masking before encryption, got %q", got)
	}
}
