// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, TavilyAPIKey, "  tvly-abc123  \n")
				writeFile(t, dir, AnthropicAPIKey, "sk-ant-xyz")
				return dir
			},
			want: Secrets{
				TavilyAPIKey:    "tvly-abc123",
				AnthropicAPIKey: "sk-ant-xyz",
			},
		},
		{
			name: "returns empty set for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files, dotfiles, and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "sk-openai")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, ".gitkeep", "ignored")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Secrets{OpenAIAPIKey: "sk-openai"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecrets_Fill(t *testing.T) {
	s := Secrets{TavilyAPIKey: "from-file"}

	assert.Equal(t, "explicit", s.Fill("explicit", TavilyAPIKey))
	assert.Equal(t, "from-file", s.Fill("", TavilyAPIKey))
	assert.Equal(t, "", s.Fill("", OpenAIAPIKey))
}

func TestSecrets_KeysSorted(t *testing.T) {
	s := Secrets{TavilyAPIKey: "a", AnthropicAPIKey: "b", OpenAIAPIKey: "c"}
	assert.Equal(t, []string{AnthropicAPIKey, OpenAIAPIKey, TavilyAPIKey}, s.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
