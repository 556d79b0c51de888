// Ollama Provider implementation over the native /api/chat endpoint.
//
// Information Hiding:
// - HTTP transport and error decoding
// - Newline-delimited JSON stream framing

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/richinex/lingo/model"
	"github.com/richinex/lingo/tools"
)

// DefaultOllamaURL is the address of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for a local Ollama server.
type OllamaProvider struct {
	client      *http.Client
	adapter     *OllamaAdapter
	baseURL     string
	model       string
	maxTokens   uint32
	temperature float32
	onEvent     func(raw []byte)
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg Config) *OllamaProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &OllamaProvider{
		client:      client,
		adapter:     NewOllamaAdapter(WithAdapterLogger(cfg.logger()), WithIDFunc(cfg.idFunc())),
		baseURL:     baseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		onEvent:     cfg.OnEvent,
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the current model.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Adapter returns the wire adapter used by the provider.
func (p *OllamaProvider) Adapter() *OllamaAdapter {
	return p.adapter
}

func (p *OllamaProvider) post(ctx context.Context, messages []model.Message, defs []tools.Definition, streaming bool) (*http.Response, error) {
	wire, err := p.adapter.ToWireMessages(messages)
	if err != nil {
		return nil, err
	}

	options := map[string]any{"temperature": p.temperature}
	if p.maxTokens > 0 {
		options["num_predict"] = p.maxTokens
	}
	body, err := json.Marshal(OllamaChatRequest{
		Model:    p.model,
		Messages: wire,
		Tools:    p.adapter.ToWireTools(defs),
		Stream:   &streaming,
		Options:  options,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("ollama: %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("ollama: %s: %s", resp.Status, strings.TrimSpace(string(data)))
}

// Generate sends a chat completion request with tool definitions.
func (p *OllamaProvider) Generate(ctx context.Context, messages []model.Message, defs []tools.Definition) ([]model.Message, error) {
	resp, err := p.post(ctx, messages, defs, false)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	defer resp.Body.Close()

	var out OllamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("chat completion failed: %s", out.Error)
	}
	return p.adapter.FromWireResponse(&out), nil
}

// Stream streams a chat completion as cumulative snapshots.
func (p *OllamaProvider) Stream(ctx context.Context, messages []model.Message, defs []tools.Definition) iter.Seq2[model.Message, error] {
	events := func(yield func(*OllamaChatResponse, error) bool) {
		resp, err := p.post(ctx, messages, defs, true)
		if err != nil {
			yield(nil, fmt.Errorf("stream error: %w", err))
			return
		}
		defer resp.Body.Close()

		dec := newNDJSONDecoder(resp.Body)
		for {
			line, err := dec.Next()
			if errors.Is(err, io.EOF) {
				yield(nil, errors.New("stream error: ended before done"))
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("stream error: %w", err))
				return
			}
			if p.onEvent != nil {
				p.onEvent(line)
			}
			chunk, err := decodeOllamaChunk(line)
			if err != nil {
				yield(nil, fmt.Errorf("stream error: %w", err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}
	return p.adapter.FoldOllama(events)
}

func decodeOllamaChunk(line []byte) (*OllamaChatResponse, error) {
	var chunk OllamaChatResponse
	if err := json.Unmarshal(line, &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	if chunk.Error != "" {
		return nil, errors.New(chunk.Error)
	}
	return &chunk, nil
}

// ndjsonDecoder yields non-empty lines of a newline-delimited JSON body.
type ndjsonDecoder struct {
	r *bufio.Reader
}

func newNDJSONDecoder(r io.Reader) *ndjsonDecoder {
	return &ndjsonDecoder{r: bufio.NewReader(r)}
}

// Next returns the next line without its terminator and io.EOF when the
// underlying reader ends.
func (d *ndjsonDecoder) Next() ([]byte, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			return line, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

// Verify OllamaProvider implements Provider
var _ Provider = (*OllamaProvider)(nil)
