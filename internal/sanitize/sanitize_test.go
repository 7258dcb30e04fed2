package sanitize

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Ann", "Ann"},
		{"  Ann  ", "Ann"},
		{"<b>Ann</b>", "Ann"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"<script>alert(1)</script>", ""},
		{`<img src=x onerror="alert(1)">Bob`, "Bob"},
		{"Zoë", "Zoë"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Ann", "Ann"},
		{"&lt;b&gt;Ann&lt;/b&gt;", "Ann"},
		{"&amp;lt;b&amp;gt;Ann&amp;lt;/b&amp;gt;", "Ann"},
	}

	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainText_NoMarkupSurvives(t *testing.T) {
	inputs := []string{
		"&lt;img src=x onerror=alert(1)&gt;Bob",
		"&#60;b&#62;Bob&#60;/b&#62;",
	}
	for _, in := range inputs {
		got := PlainText(in)
		if strings.ContainsAny(got, "<>") {
			t.Errorf("PlainText(%q) = %q, still contains markup", in, got)
		}
	}
}
