package commands

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/internal/testutil"

	_ "github.com/leapstack-labs/leaptable/pkg/adapters/sqlite"
)

const serveConfig = `
export:
  threshold: 1
  signing_key: test-secret
tables:
  people:
    file: people.yaml
    exportable: true
    columns:
      - key: name
        orderable: true
`

func writeProject(t *testing.T, cfg string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "leaptable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.yaml"), []byte("- {name: Ann}\n- {name: Bob}\n"), 0o600))
	return dir, path
}

func session(t *testing.T, path string) *Session {
	t.Helper()
	cfg, used, err := config.Load(path, nil)
	require.NoError(t, err)
	return &Session{
		Config:     cfg,
		ConfigFile: used,
		Logger:     testutil.NewTestLogger(t),
		Reload: func() (*config.Config, error) {
			next, _, err := config.Load(used, nil)
			return next, err
		},
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestBuildServer_DeferredExportAndReload(t *testing.T) {
	dir, path := writeProject(t, serveConfig)
	s := session(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	srv, cleanup, err := BuildServer(ctx, s)
	require.NoError(t, err)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
		cleanup()
	})
	base := "http://" + ln.Addr().String()

	// Two rows over a threshold of one: the export is queued.
	var deferred struct {
		Message     string `json:"message"`
		DownloadURL string `json:"download_url"`
	}
	resp, err := http.Post(base+"/tables/people/export/csv", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deferred))
	_ = resp.Body.Close()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + deferred.DownloadURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "Name\nAnn\nBob\n"
	}, 5*time.Second, 50*time.Millisecond)

	_, err = os.Stat(filepath.Join(dir, ".leaptable", "state.db"))
	assert.NoError(t, err, "job store lives under the project root")

	// Adding a table to the config file is picked up without a restart.
	updated := serveConfig + `
  team:
    file: people.yaml
    columns:
      - key: name
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	require.Eventually(t, func() bool {
		var index struct {
			Tables []string `json:"tables"`
		}
		return getJSON(t, base+"/", &index) == http.StatusOK && len(index.Tables) == 2
	}, 5*time.Second, 50*time.Millisecond)

	// A broken edit keeps the tables that were serving.
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  team:\n    columns: []\n"), 0o600))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, http.StatusOK, getJSON(t, base+"/tables/team", nil))
}

func TestBuildServer_Errors(t *testing.T) {
	_, path := writeProject(t, `
targets:
  gone:
    type: sqlite
    database: /nonexistent/dir/x.db
    options: {mode: ro}
tables:
  broken:
    target: gone
    table: t
    columns: [{key: id}]
`)
	s := session(t, path)

	_, _, err := BuildServer(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table broken")
}
