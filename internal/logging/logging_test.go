package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "relcards.log")
	log, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	log.Debugw("reorder persisted", "list", "Section", "updates", 3)
	_ = log.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"reorder persisted"`)
	require.Contains(t, string(b), `"updates":3`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}
