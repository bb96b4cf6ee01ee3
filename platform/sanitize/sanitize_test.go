package sanitize

import "testing"

func TestSingleLine(t *testing.T) {
	got := SingleLine("Hola\nAna\r\n\r\nbienvenida")
	if got != "Hola Ana bienvenida" {
		t.Fatalf("SingleLine = %q", got)
	}
}

func TestGeneratedText(t *testing.T) {
	tests := map[string]string{
		"  \"pop, warm vocals\"  ":           "pop, warm vocals",
		"```\nverso uno\ncoro\n```":          "verso uno\ncoro",
		"```text\nbalada\n```":               "balada",
		"sin cambios":                        "sin cambios",
		"":                                   "",
	}
	for in, want := range tests {
		if got := GeneratedText(in); got != want {
			t.Errorf("GeneratedText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextStripsTags(t *testing.T) {
	if got := Text("<b>Hola</b> &lt;script&gt;x&lt;/script&gt;"); got != "Hola x" {
		t.Fatalf("Text = %q", got)
	}
}
