package phone

import "testing"

func TestNormalizeEquivalentForms(t *testing.T) {
	forms := []string{
		"0722123456",
		"+40722123456",
		"0040722123456",
		"0722 123 456",
		"0722-123-456",
		"+40 (722) 123.456",
	}
	for _, raw := range forms {
		got, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", raw, err)
		}
		if got != "+40722123456" {
			t.Fatalf("Normalize(%q) = %q, want +40722123456", raw, got)
		}
	}
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"072212345",      // too short
		"07221234567",    // too long
		"0822123456",     // not a mobile prefix
		"+41722123456",   // wrong country
		"0722abc456",     // letters
		"722123456",      // missing trunk prefix
		"+4072212345678", // too long international
	}
	for _, raw := range inputs {
		if _, err := Normalize(raw); err != ErrInvalidFormat {
			t.Fatalf("Normalize(%q) = %v, want ErrInvalidFormat", raw, err)
		}
	}
}

func TestMaskKeepsPrefixAndLastTwoDigits(t *testing.T) {
	if got := Mask("+40722123456"); got != "+40•••••••56" {
		t.Fatalf("Mask returned %q", got)
	}
}
