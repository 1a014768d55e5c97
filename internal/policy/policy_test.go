package policy

import "testing"

func TestIsModelAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowlist []string
		model     string
		provider  string
		want      bool
	}{
		{
			name:      "empty allowlist admits everything",
			allowlist: nil,
			model:     "deepseek-chat",
			provider:  "deepseek",
			want:      true,
		},
		{
			name:      "listed model allowed",
			allowlist: []string{"a"},
			model:     "a",
			provider:  "deepseek",
			want:      true,
		},
		{
			name:      "unlisted model denied",
			allowlist: []string{"a"},
			model:     "b",
			provider:  "deepseek",
			want:      false,
		},
		{
			name:      "provider-qualified entry matches",
			allowlist: []string{"deepseek/deepseek-reasoner"},
			model:     "deepseek-reasoner",
			provider:  "deepseek",
			want:      true,
		},
		{
			name:      "qualified entry for another provider does not match",
			allowlist: []string{"openai/gpt-4o"},
			model:     "gpt-4o",
			provider:  "deepseek",
			want:      false,
		},
		{
			name:      "match is case-sensitive",
			allowlist: []string{"deepseek-chat"},
			model:     "DeepSeek-Chat",
			provider:  "deepseek",
			want:      false,
		},
		{
			name:      "empty model denied by configured allowlist",
			allowlist: []string{"deepseek-chat"},
			model:     "",
			provider:  "deepseek",
			want:      false,
		},
		{
			name:      "several entries",
			allowlist: []string{"deepseek-chat", "deepseek-reasoner"},
			model:     "deepseek-reasoner",
			provider:  "deepseek",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsModelAllowed(tt.allowlist, tt.model, tt.provider)
			if got != tt.want {
				t.Errorf("IsModelAllowed(%v, %q, %q) = %v, want %v",
					tt.allowlist, tt.model, tt.provider, got, tt.want)
			}
		})
	}
}
