package types

import "testing"

func TestIsValidJoinCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"ZZZZZZ", true},
		{"abc123", false},
		{"ABC12", false},
		{"ABC1234", false},
		{"AB-123", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidJoinCode(tt.code); got != tt.want {
			t.Errorf("IsValidJoinCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestPromptValidate(t *testing.T) {
	tests := []struct {
		name    string
		prompt  Prompt
		wantErr error
	}{
		{"text prompt", Prompt{Content: "Why?", Type: PromptTypeText}, nil},
		{"scale prompt", Prompt{Content: "Rate it", Type: PromptTypeScale}, nil},
		{"MC with options", Prompt{Content: "Pick", Type: PromptTypeMC, Options: []string{"A", "B"}}, nil},
		{"empty content", Prompt{Type: PromptTypeText}, ErrInvalidPrompt},
		{"MC single option", Prompt{Content: "Pick", Type: PromptTypeMC, Options: []string{"A"}}, ErrInvalidPromptOptions},
		{"MC blank options", Prompt{Content: "Pick", Type: PromptTypeMC, Options: []string{"A", ""}}, ErrInvalidPromptOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.prompt.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPromptValidate_Normalization(t *testing.T) {
	// Unknown types fall back to TEXT rather than failing the broadcast.
	p := Prompt{Content: "Why?", Type: "ESSAY"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Type != PromptTypeText {
		t.Errorf("Type = %q, want coerced TEXT", p.Type)
	}

	// Non-MC prompts drop stray options.
	p = Prompt{Content: "Why?", Type: PromptTypeText, Options: []string{"A"}}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Options != nil {
		t.Errorf("Options = %v, want dropped", p.Options)
	}
}
