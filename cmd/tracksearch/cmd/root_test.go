package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tracksearch/internal/config"
)

const prsYAML = `
- id: 7
  repository: web
  title: Add Redis cache for sessions
  status: active
  is_draft: true
  created_at: 2026-10-01T08:00:00Z
  updated_at: 2026-10-10T08:00:00Z
`

const workItemsYAML = `
- id: 101
  title: Login fails on Safari
  type: Bug
  state: Active
  priority: 1
  created_at: 2026-09-01T08:00:00Z
  updated_at: 2026-10-12T08:00:00Z
- id: 102
  title: Write deploy runbook
  type: Task
  state: New
  priority: 2
  created_at: 2026-10-01T08:00:00Z
  updated_at: 2026-10-12T08:00:00Z
`

// fakeOpenAI serves /embeddings with one keyword vector per input.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input json.RawMessage `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var inputs []string
		if err := json.Unmarshal(req.Input, &inputs); err != nil {
			var single string
			if err := json.Unmarshal(req.Input, &single); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			inputs = []string{single}
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(inputs))
		for i, in := range inputs {
			lower := strings.ToLower(in)
			vec := []float32{0, 0, 0, 0.1}
			for j, kw := range []string{"login", "cache", "deploy"} {
				if strings.Contains(lower, kw) {
					vec[j] = 1
				}
			}
			data[i] = item{Object: "embedding", Embedding: vec, Index: i}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-model",
			"usage":  map[string]int{"prompt_tokens": len(inputs), "total_tokens": len(inputs)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeFixture lays out a snapshot directory and a config file using the local driver.
func writeFixture(t *testing.T, embeddingURL string) string {
	t.Helper()
	root := t.TempDir()

	project := filepath.Join(root, "snapshots", "acme", "Web")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "pull_requests.yaml"), []byte(prsYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(project, "work_items.yaml"), []byte(workItemsYAML), 0o600))

	cfg := fmt.Sprintf(`
database:
  driver: local
  path: %[1]s/docs.db
  index_path: %[1]s/text.bleve
embedding:
  providers:
    openai:
      api_key: test-key
      base_url: %[2]s
  vectorizers:
    default:
      provider: openai
      model: test-model
      dimensions: 4
sync:
  snapshot_dir: %[1]s/snapshots
  projects:
    - organization: acme
      project: Web
logging:
  level: error
`, root, embeddingURL)

	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--env", "local"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "sync", "search", "stats", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tracksearch dev")
}

func TestSyncTargets(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		all     bool
		want    int
		wantErr bool
	}{
		{"explicit project", []string{"acme", "Web"}, false, 1, false},
		{"all", nil, true, 0, false},
		{"all with args", []string{"acme", "Web"}, true, 0, true},
		{"missing project", []string{"acme"}, false, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := syncTargets(tc.args, tc.all)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestOpenAIConfig(t *testing.T) {
	cfg := config.Config{
		Embedding: config.EmbeddingConfig{
			TimeoutSec: 5,
			Providers:  map[string]config.ProviderConfig{"openai": {APIKey: "k", BaseURL: "http://x"}},
			Vectorizers: map[string]config.VectorizerConfig{
				"zeta":    {Provider: "openai", Model: "z"},
				"default": {Provider: "openai", Model: "m", Dimensions: 8, QueryInstruction: "q: "},
			},
		},
	}

	oc, ok := openAIConfig(cfg)
	require.True(t, ok)
	assert.Equal(t, "m", oc.Model)
	assert.Equal(t, 8, oc.Dimensions)
	assert.Equal(t, "q: ", oc.QueryInstruction)
	assert.Equal(t, "5s", oc.Timeout.String())

	delete(cfg.Embedding.Vectorizers, "default")
	cfg.Embedding.Vectorizers["alpha"] = config.VectorizerConfig{Provider: "openai", Model: "a"}
	oc, ok = openAIConfig(cfg)
	require.True(t, ok)
	assert.Equal(t, "a", oc.Model)

	cfg.Embedding.Providers["openai"] = config.ProviderConfig{}
	_, ok = openAIConfig(cfg)
	assert.False(t, ok)
}

func TestSyncThenSearch(t *testing.T) {
	cfgPath := writeFixture(t, fakeOpenAI(t).URL)

	out, err := run(t, "sync", "acme", "Web", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "acme/Web: 1 PRs, 2 work items indexed")

	out, err = run(t, "stats", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var st struct {
		Total     int `json:"total"`
		PRs       int `json:"prs"`
		WorkItems int `json:"work_items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.PRs)
	assert.Equal(t, 2, st.WorkItems)

	out, err = run(t, "search", "priority", "1", "bugs", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var res struct {
		Count   int `json:"count"`
		Results []struct {
			SourceID string `json:"source_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "101", res.Results[0].SourceID)

	out, err = run(t, "search", "login", "--config", cfgPath, "--explain")
	require.NoError(t, err)
	assert.Contains(t, out, `text:    "login"`)
	assert.Contains(t, out, " 1. [work_item:101] Login fails on Safari")
}

func TestSyncAll(t *testing.T) {
	cfgPath := writeFixture(t, fakeOpenAI(t).URL)

	out, err := run(t, "sync", "--all", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var reports []syncReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Stats.PRsIndexed)
	assert.Empty(t, reports[0].Error)
}

func TestSync_UnknownProjectCountsErrors(t *testing.T) {
	cfgPath := writeFixture(t, fakeOpenAI(t).URL)

	out, err := run(t, "sync", "acme", "Missing", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "acme/Missing: 0 PRs, 0 work items indexed, 0 deleted, 2 errors")
}

func TestSearch_NoResults(t *testing.T) {
	cfgPath := writeFixture(t, fakeOpenAI(t).URL)

	out, err := run(t, "search", "anything", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}
