package sharedmic

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sharedmic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ChannelCount)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 20*time.Millisecond, cfg.Latency)
	assert.Zero(t, cfg.IdleTimeout)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
sample_rate: 16000
noise_suppression: false
idle_timeout: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.SampleRate = 16000
	expected.NoiseSuppression = false
	expected.IdleTimeout = 2 * time.Second
	assert.Equal(t, expected, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := map[string]string{
		"InvalidChannelCount": "channel_count: 0\n",
		"InvalidLatency":      "latency: -5ms\n",
		"InvalidIdleTimeout":  "idle_timeout: -1s\n",
		"Malformed":           "sample_rate: [48000\n",
	}

	for name, content := range testCases {
		content := content
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestManagerUsesConfig(t *testing.T) {
	f := newFixture(t, "a")

	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.IdleTimeout = time.Minute
	m := f.newManager(WithConfig(cfg))
	defer m.Close()

	b, err := m.Acquire(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 16000, b.Track().Settings().SampleRate)

	chunk, err := readWithTimeout(t, b.NewReader(false))
	require.NoError(t, err)
	assert.Equal(t, 320, chunk.ChunkInfo().Len)

	m.Release(b)
	assert.Equal(t, PhaseIdle, m.State().Phase)
}
