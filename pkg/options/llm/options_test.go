package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingDefaultsAreValid(t *testing.T) {
	o := NewEmbeddingOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
	assert.Equal(t, "all-minilm", o.Model)
}

func TestChatDefaultsAreValid(t *testing.T) {
	o := NewChatOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
}

func TestOpenAIRequiresAPIKey(t *testing.T) {
	o := NewChatOptions()
	o.Provider = "openai"
	o.APIKey = ""

	errs := o.Validate()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "api-key")
}

func TestValidateMissingFields(t *testing.T) {
	o := &ProviderOptions{}
	errs := o.Validate()
	// provider, base-url, model, timeout 全部缺失
	assert.Len(t, errs, 4)
}

func TestCompleteFillsRetries(t *testing.T) {
	o := NewProviderOptions()
	o.MaxRetries = 0
	require.NoError(t, o.Complete())
	assert.Equal(t, 3, o.MaxRetries)
}

func TestToConfigMap(t *testing.T) {
	o := NewEmbeddingOptions()
	o.APIKey = "sk-test"
	o.Timeout = 30 * time.Second

	cfg := o.ToConfigMap()
	assert.Equal(t, "http://localhost:11434", cfg["base_url"])
	assert.Equal(t, "sk-test", cfg["api_key"])
	assert.Equal(t, "all-minilm", cfg["embed_model"])
	assert.Equal(t, 30*time.Second, cfg["timeout"])
}
