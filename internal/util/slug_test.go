package util

import "testing"

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "QUICK", "quick"},
		{"spaces to hyphens", "slow cooker", "slow-cooker"},
		{"underscores to hyphens", "slow_cooker", "slow-cooker"},
		{"already normalized", "slow-cooker", "slow-cooker"},

		// Whitespace handling
		{"trim whitespace", "  quick  ", "quick"},
		{"multiple spaces", "slow   cooker", "slow-cooker"},
		{"tabs and spaces", "slow\t cooker", "slow-cooker"},

		// Unicode folding
		{"accents decomposed", "Crème Brûlée", "creme-brulee"},
		{"emoji removal", "🌶 Spicy!", "spicy"},

		// Special characters
		{"slashes", "sweet/sour", "sweet-sour"},
		{"apostrophes", "shepherd's pie", "shepherd-s-pie"},

		// Hyphen handling
		{"multiple hyphens", "slow--cooker", "slow-cooker"},
		{"leading hyphens", "--quick", "quick"},
		{"trailing hyphens", "quick--", "quick"},

		// Edge cases
		{"empty string", "", ""},
		{"only symbols", "!!!", ""},
		{"numbers kept", "30 minute meals", "30-minute-meals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSlug(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
