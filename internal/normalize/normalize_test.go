package normalize

import "testing"

func TestEmail(t *testing.T) {
	cases := map[string]string{
		"Alice@Example.COM":       "alice@example.com",
		"user+tag@example.com":    "user@example.com",
		"user+a+b@example.com":    "user@example.com",
		"noat":                    "noat",
		"USER@EXAMPLE.COM":        "user@example.com",
		"":                        "",
	}
	for in, want := range cases {
		if got := Email(in); got != want {
			t.Fatalf("Email(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestEmail_Idempotent(t *testing.T) {
	inputs := []string{"Alice+x@Example.COM", "plain@EXAMPLE.com", "noat-value"}
	for _, in := range inputs {
		once := Email(in)
		twice := Email(once)
		if once != twice {
			t.Fatalf("Email not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 000-1234": "+15550001234",
		"+15550001234":       "+15550001234",
		"555-000-1234":       "5550001234",
		"abc":                 "",
		"":                    "",
		"1+555":               "1555",
	}
	for in, want := range cases {
		if got := Phone(in); got != want {
			t.Fatalf("Phone(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestPhone_Idempotent(t *testing.T) {
	inputs := []string{"+1 (555) 000-1234", "555.000.1234", "+15550001234"}
	for _, in := range inputs {
		once := Phone(in)
		twice := Phone(once)
		if once != twice {
			t.Fatalf("Phone not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestChannel(t *testing.T) {
	if got := Channel("email", "User+x@Example.com"); got != "user@example.com" {
		t.Fatalf("Channel(email) = %q", got)
	}
	if got := Channel("sms", "+1 (555) 000-1234"); got != "+15550001234" {
		t.Fatalf("Channel(sms) = %q", got)
	}
	if got := Channel("mms", "+1 (555) 000-1234"); got != "+15550001234" {
		t.Fatalf("Channel(mms) = %q", got)
	}
}
