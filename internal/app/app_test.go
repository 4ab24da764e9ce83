package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"justify/internal/config"
	"justify/internal/embedding/cache"
	"justify/internal/glossary"
	"justify/internal/llm"
)

// ollamaStub answers /api/generate with a numbered question list for
// suggestion prompts and a fixed answer otherwise.
func ollamaStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := "Penalties are set out in Section 12."
		if strings.Contains(req.Prompt, "FAQ-style") {
			out = "1. What penalties does the Act impose?\n2. Who enforces the Clean Air Act?"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": out})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.AppConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Generator.BaseURL = baseURL
	cfg.Recognizer.GazetteerPath = filepath.Join(t.TempDir(), "assets", "gazetteer.yaml")
	return cfg
}

func TestApp_BuildAndAsk(t *testing.T) {
	srv := ollamaStub(t)
	cfg := testConfig(t, srv.URL)
	a, err := newWithLogger(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	doc := filepath.Join(t.TempDir(), "act.txt")
	require.NoError(t, os.WriteFile(doc, []byte(
		"The Clean Air Act regulates emissions. The Environmental Protection Agency enforces the Act. "+
			"Section 12 sets penalties for violations."), 0o644))

	snap, err := a.LoadAndBuild(context.Background(), []string{doc})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Documents)
	assert.NotEmpty(t, snap.Suggestions)
	require.Len(t, snap.Glossary, 1)
	assert.Contains(t, snap.Glossary[0].Terms[glossary.ActsLaws], "Clean Air Act")

	// The missing gazetteer was installed by the fetch step.
	_, err = os.Stat(cfg.Recognizer.GazetteerPath)
	assert.NoError(t, err)

	answer, results, err := a.Session.Ask(context.Background(), "What penalties apply?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Penalties are set out in Section 12.", answer)
	assert.NotEmpty(t, results)
}

func TestNewEmbedder_WrapsRemoteWithCache(t *testing.T) {
	t.Setenv("JUSTIFY_TEST_EMBED_KEY", "k")
	emb, err := newEmbedder(config.EmbedderConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIEmbedderConfig{APIKeyEnv: "JUSTIFY_TEST_EMBED_KEY"},
		Cache:  config.EmbeddingCacheConfig{Size: 16},
	})
	require.NoError(t, err)
	_, ok := emb.(*cache.Embedder)
	assert.True(t, ok)

	emb, err = newEmbedder(config.EmbedderConfig{Type: "tfidf", Cache: config.EmbeddingCacheConfig{Size: 16}})
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())
}

func TestNewGenerator(t *testing.T) {
	t.Setenv("JUSTIFY_TEST_LLM_KEY", "")
	_, err := newGenerator(config.GeneratorConfig{Type: "openai", APIKeyEnv: "JUSTIFY_TEST_LLM_KEY"})
	assert.Error(t, err)

	_, err = newGenerator(config.GeneratorConfig{Type: "claude"})
	assert.Error(t, err)

	gen, err := newGenerator(config.GeneratorConfig{Type: "ollama", RatePerSec: 2, Burst: 1})
	require.NoError(t, err)
	assert.Equal(t, "ollama", gen.Name())
	_, isOllama := gen.(*llm.Ollama)
	assert.False(t, isOllama, "rate limit decorator expected")
}

func TestNewRecognizer_Unknown(t *testing.T) {
	_, err := newRecognizer(config.RecognizerConfig{Type: "spacy"}, llm.NewOllama(llm.Options{}), zap.NewNop())
	assert.Error(t, err)
}
