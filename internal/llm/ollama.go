package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"justify/internal/domain"
)

const defaultOllamaURL = "http://localhost:11434"

var _ Generator = (*Ollama)(nil)

// Ollama talks to a local Ollama server through its native REST API.
type Ollama struct {
	opts   Options
	client *http.Client
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func NewOllama(opts Options) *Ollama {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Ollama{opts: opts, client: &http.Client{Timeout: opts.timeout()}}
}

func (o *Ollama) Name() string { return "ollama" }

// Model returns the configured model name.
func (o *Ollama) Model() string { return o.opts.Model }

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body := ollamaGenerateRequest{
		Model:  o.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  o.opts.MaxTokens,
			Temperature: o.opts.Temperature,
		},
	}
	var out ollamaGenerateResponse
	if err := o.post(ctx, "/api/generate", body, &out); err != nil {
		return "", domain.GeneratorFailure(o.Name(), err)
	}
	if out.Error != "" {
		return "", domain.GeneratorFailure(o.Name(), fmt.Errorf("%s", out.Error))
	}
	return out.Response, nil
}

// Ping checks that the configured model is available locally.
func (o *Ollama) Ping(ctx context.Context) error {
	return o.post(ctx, "/api/show", map[string]string{"model": o.opts.Model}, nil)
}

// Pull downloads the configured model. It blocks until the pull completes.
func (o *Ollama) Pull(ctx context.Context) error {
	body := map[string]any{"model": o.opts.Model, "stream": false}
	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := o.post(ctx, "/api/pull", body, &out); err != nil {
		return err
	}
	if out.Error != "" {
		return fmt.Errorf("pull %s: %s", o.opts.Model, out.Error)
	}
	return nil
}

func (o *Ollama) post(ctx context.Context, path string, in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.opts.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
