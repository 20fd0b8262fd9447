package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/persistence/middleware"
	"github.com/infinite-echoes/echoes/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	s := domain.NewSession("test-session")
	s.ZoneID = "crypt_level_1"
	s.Turns = 3
	s.Messages = append(s.Messages, domain.Message{Role: domain.RoleUser, Content: "I whisper the secret word"})

	if err := secure.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlying.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.ZoneID != "" {
		t.Errorf("Expected zone to be hidden, found: %q", stored.ZoneID)
	}
	if len(stored.Messages) != 1 || stored.Messages[0].Role != middleware.RoleEncrypted {
		t.Fatalf("Expected a single encrypted message, got %+v", stored.Messages)
	}
	if strings.Contains(stored.Messages[0].Content, "secret word") {
		t.Fatal("Message content stored in the clear")
	}
	if stored.Turns != 3 {
		t.Errorf("Expected turns to stay readable, got %d", stored.Turns)
	}

	loaded, err := secure.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.ZoneID != "crypt_level_1" || loaded.Messages[0].Content != "I whisper the secret word" {
		t.Errorf("Unexpected decrypted session: %+v", loaded)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()
	s := domain.NewSession("rotation-session")
	s.LastResponse = "encrypted-with-old-key"
	if err := oldStore.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, s.ID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.LastResponse != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.LastResponse = "encrypted-with-new-key"
	if err := newStore.Save(ctx, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := oldStore.Load(ctx, s.ID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainSession(t *testing.T) {
	underlying := memory.NewStore()
	if err := underlying.Save(context.Background(), domain.NewSession("plain")); err != nil {
		t.Fatal(err)
	}

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(context.Background(), "plain")
	if !errors.Is(err, middleware.ErrMissingEnvelope) {
		t.Fatalf("Expected ErrMissingEnvelope, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if err == nil {
		t.Error("Expected error for invalid key size")
	}
}
