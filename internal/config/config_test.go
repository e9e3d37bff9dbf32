package config

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseIDList(t *testing.T) {
	tests := []struct {
		input    string
		expected []int64
	}{
		{"", nil},
		{"123", []int64{123}},
		{"123,456", []int64{123, 456}},
		{" 123 , 456 ", []int64{123, 456}},
		{"123,,456", []int64{123, 456}},
		{"123,abc,456", []int64{123, 456}},
	}

	for _, tt := range tests {
		got := parseIDList(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("parseIDList(%q) = %v, want %v", tt.input, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("parseIDList(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.expected[i])
			}
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.PlatformFeeBPS != 500 {
		t.Errorf("default fee = %d bps, want 500", cfg.PlatformFeeBPS)
	}
	if cfg.StakeToleranceBPS != 2000 {
		t.Errorf("default tolerance = %d bps, want 2000", cfg.StakeToleranceBPS)
	}
	if cfg.PlatformAccountID != uuid.Nil {
		t.Errorf("platform account should default to nil uuid")
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminTelegramIDs: []int64{100, 200}}
	if !cfg.IsAdmin(100) {
		t.Errorf("100 should be admin")
	}
	if cfg.IsAdmin(300) {
		t.Errorf("300 should not be admin")
	}
}
