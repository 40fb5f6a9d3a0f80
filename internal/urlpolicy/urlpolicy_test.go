package urlpolicy

import "testing"

func TestEmptyAllowListAllowsEverything(t *testing.T) {
	p, errs := Compile(nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	if !p.Allowed("https://example.com/a.mp3") {
		t.Fatal("expected default-allow with empty lists")
	}
}

func TestBlockOverridesAllow(t *testing.T) {
	p, _ := Compile([]string{".*"}, []string{"^file://"})
	if p.Allowed("file:///etc/passwd") {
		t.Fatal("expected block pattern to reject file:// URIs")
	}
	if !p.Allowed("https://example.com/a.mp3") {
		t.Fatal("expected non-blocked URI to be allowed")
	}
}

func TestAllowListRestrictsToMatches(t *testing.T) {
	p, _ := Compile([]string{"^https://"}, nil)
	if p.Allowed("http://example.com/a.mp3") {
		t.Fatal("expected http to be rejected by https-only allow list")
	}
	if !p.Allowed("https://example.com/a.mp3") {
		t.Fatal("expected https to be allowed")
	}
}

func TestInvalidPatternIsReportedNotFatal(t *testing.T) {
	_, errs := Compile([]string{"("}, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 compile error, got %d", len(errs))
	}
}
