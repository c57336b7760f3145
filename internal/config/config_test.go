package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stackapp.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.Addr)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Scraper.MaxPages)
	assert.NotEmpty(t, cfg.Scraper.Selectors.Entry)
}

func TestLoadFileThenEnv(t *testing.T) {
	p := writeFile(t, `
app:
  addr: ":9000"
  timezone: Europe/Berlin
database:
  driver: postgres
  dsn: postgres://localhost/stackapp?sslmode=disable
elasticsearch:
  addresses: ["http://es:9200"]
  index: questions
scraper:
  max_pages: 3
  default_pages: 2
  timeout: 5s
  selectors:
    entry: ".question-summary"
`)
	t.Setenv("STACKAPP_ADDR", ":9100")
	t.Setenv("STACKAPP_REDIS_ADDR", "redis:6379")
	t.Setenv("STACKAPP_REDIS_DB", "2")
	t.Setenv("STACKAPP_SCRAPER_DEFAULT_PAGES", "1")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.App.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"http://es:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "questions", cfg.Elasticsearch.Index)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 3, cfg.Scraper.MaxPages)
	assert.Equal(t, 1, cfg.Scraper.DefaultPages)
	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, ".question-summary", cfg.Scraper.Selectors.Entry)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"driver":   "database:\n  driver: mysql\n",
		"timezone": "app:\n  timezone: Mars/Olympus\n",
		"pages":    "scraper:\n  max_pages: 50\n",
		"yaml":     "app: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}
