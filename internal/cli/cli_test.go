package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factiva-io/factiva-analytics-go/taxonomy"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	assert.Equal(t, 10*time.Second, settings.PollInterval)
	assert.Equal(t, 90*time.Second, settings.Timeout)
	assert.NotEmpty(t, settings.DownloadDir)
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: 30s\ndownload_dir: /tmp/factiva\n"), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, settings.PollInterval)
	assert.Equal(t, "/tmp/factiva", settings.DownloadDir)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	settings := DefaultSettings()
	settings.PollInterval = 42 * time.Second

	require.NoError(t, SaveSettings(settings, path))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, loaded.PollInterval)
}

func TestParseCategory(t *testing.T) {
	for name, want := range map[string]taxonomy.Category{
		"news_subjects": taxonomy.NewsSubjects,
		"subjects":      taxonomy.NewsSubjects,
		"regions":       taxonomy.Regions,
		"industries":    taxonomy.Industries,
		"companies":     taxonomy.Companies,
		"executives":    taxonomy.Executives,
	} {
		got, err := parseCategory(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := parseCategory("astrology")
	require.Error(t, err)
}
