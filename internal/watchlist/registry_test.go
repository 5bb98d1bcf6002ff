package watchlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeList(t *testing.T, path, content string) {
	t.Helper()
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRegistryReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	writeList(t, path, "symbols:\n  - fpt\n  - HPG\n  - fpt\n")

	r, err := NewRegistry(path)
	assert.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"FPT", "HPG"}, r.Symbols())
}

func TestNewRegistryRejectsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	writeList(t, path, "symbols: []\n")

	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestRegistryHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	writeList(t, path, "symbols: [FPT]\n")

	r, err := NewRegistry(path)
	assert.NoError(t, err)
	defer r.Close()

	changed := make(chan []string, 1)
	r.OnChange(func(symbols []string) {
		select {
		case changed <- symbols:
		default:
		}
	})

	writeList(t, path, "symbols: [FPT, KBC]\n")

	select {
	case symbols := <-changed:
		assert.Equal(t, []string{"FPT", "KBC"}, symbols)
	case <-time.After(3 * time.Second):
		t.Fatal("watchlist change was not observed")
	}
	assert.Equal(t, []string{"FPT", "KBC"}, r.Symbols())
}

func TestStaticRegistry(t *testing.T) {
	r := NewStatic([]string{" hpg", "FPT", ""})
	assert.Equal(t, []string{"FPT", "HPG"}, r.Symbols())
	r.Close()
}
