package memory_test

import (
	"testing"

	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}
