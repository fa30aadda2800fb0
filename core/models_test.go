package core

import (
	"testing"
)

func TestNormaliseStringList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{
			name:   "trims and drops empties",
			values: []string{" ai ", "", "agents"},
			want:   []string{"ai", "agents"},
		},
		{
			name:   "nil input yields empty slice",
			values: nil,
			want:   []string{},
		},
		{
			name:   "whitespace only entries dropped",
			values: []string{"   ", "\t", "go"},
			want:   []string{"go"},
		},
		{
			name:   "order preserved",
			values: []string{"b", "a", "c"},
			want:   []string{"b", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormaliseStringList(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("NormaliseStringList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NormaliseStringList()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		fallback string
		want     string
	}{
		{
			name: "prefers url",
			url:  "https://example.com/post",
			want: "https://example.com/post",
		},
		{
			name:     "uses fallback text",
			fallback: "a great read about compilers",
			want:     "a great read about compilers",
		},
		{
			name: "empty everything",
			want: "Untitled resource",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.url, tt.fallback); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle_TruncatesLongText(t *testing.T) {
	long := ""
	for i := 0; i < 10; i++ {
		long += "0123456789"
	}
	got := DeriveTitle("", long)
	if len([]rune(got)) != 61 { // 60 runes + ellipsis
		t.Errorf("DeriveTitle() length = %d, want 61", len([]rune(got)))
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero falls back to default", limit: 0, want: DefaultSearchLimit},
		{name: "negative falls back to default", limit: -3, want: DefaultSearchLimit},
		{name: "in range passes through", limit: 10, want: 10},
		{name: "above max is capped", limit: 100, want: MaxSearchLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLimit(tt.limit); got != tt.want {
				t.Errorf("ClampLimit(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}
