package sanitize

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Anna Petrova", "Anna Petrova"},
		{"script removed", `Bob<script>alert(1)</script>`, "Bob"},
		{"tags stripped", `<b>Bold</b> <i>Name</i>`, "Bold Name"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"whitespace collapsed", "  Ivan \t\n Ivanov  ", "Ivan Ivanov"},
		{"unicode kept", "Чими Бизнес", "Чими Бизнес"},
		{"encoded tag removed", "&lt;img src=x onerror=alert(1)&gt;", ""},
		{"encoded script removed", "Eve&lt;script&gt;alert(1)&lt;/script&gt;", "Eve"},
		{"double encoded tag removed", "&amp;lt;b&amp;gt;Bold&amp;lt;/b&amp;gt;", "Bold"},
		{"bare less-than kept", "a &lt; b", "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainText(tt.input)
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := PlainText(got); again != got {
				t.Errorf("PlainText not idempotent: %q -> %q", got, again)
			}
		})
	}
}
