package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5512345678", "525512345678"},
		{"525512345678", "525512345678"},
		{"+52 (55) 1234-5678", "525512345678"},
		{"55 1234 5678", "525512345678"},
		{"5215512345678", "5215512345678"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"5512345678", "525512345678", "+1 415 555 0100", "abc", "12345"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"5512345678", true},
		{"525512345678", true},
		{"+52 1 55 1234 5678", true},
		{"123456789", false},
		{"1234567890123456", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsValid(tc.in); got != tc.want {
			t.Errorf("IsValid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRegion(t *testing.T) {
	if got := Region("5512345678"); got != "MX" {
		t.Errorf("Region(5512345678) = %q, want MX", got)
	}
	if got := Region(""); got != "" {
		t.Errorf("Region(\"\") = %q, want empty", got)
	}
}
