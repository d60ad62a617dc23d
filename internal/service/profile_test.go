package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileDefaultsToBearer(t *testing.T) {
	name, value := profileFor("openai").AuthHeader("sk-abc")
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer sk-abc", value)

	name, value = profileFor("some-new-vendor").AuthHeader("k")
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer k", value)
}

func TestProfileVendorSpecificHeaders(t *testing.T) {
	name, value := profileFor("anthropic").AuthHeader("sk-ant")
	assert.Equal(t, "x-api-key", name)
	assert.Equal(t, "sk-ant", value)

	name, value = profileFor("azure-openai").AuthHeader("az")
	assert.Equal(t, "api-key", name)
	assert.Equal(t, "az", value)
}

func TestProfileNormalizesBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1", profileFor("openai").NormalizeBaseURL("https://api.openai.com/v1/"))
	assert.Equal(t, "https://api.anthropic.com", profileFor("anthropic").NormalizeBaseURL("https://api.anthropic.com"))
}
