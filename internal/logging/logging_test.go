package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(dir, "debug")
	require.NoError(t, err)

	logger.WithField("batch_id", "b-1").Infof("Batch completed: %d successful", 3)
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "batch-dispatch.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Batch completed: 3 successful")
	require.Contains(t, string(data), "batch_id=b-1")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(t.TempDir(), "loud")
	require.Error(t, err)
}
