package referral

import "testing"

func TestPatternsMatch(t *testing.T) {
	p := DefaultPatterns()
	hits := []string{
		"https://shop.example.com/item?aff_id=12",
		"https://shop.example.com/item?x=1&rfsn=abc",
		"https://shop.example.com/affiliate/joe",
		"https://shop.example.com/?utm_medium=affiliate",
		// encoded inside a masked link
		testPrefix + EncodeComponent("https://shop.example.com/item?aff_id=12"),
		// encoded twice inside a track link
		EncodeComponent(testPrefix + EncodeComponent("https://shop.example.com/partners/x")),
	}
	for _, s := range hits {
		if _, ok := p.Match(s); !ok {
			t.Fatalf("expected match for %q", s)
		}
	}
	misses := []string{
		testPrefix,
		"https://example.com/",
		"https://shop.example.com/item?ref=homepage",
		"https://shop.example.com/staff/list",
	}
	for _, s := range misses {
		if pat, ok := p.Match(s); ok {
			t.Fatalf("unexpected match %s for %q", pat, s)
		}
	}
}

func TestCompilePatternsExtra(t *testing.T) {
	p, err := CompilePatterns(`(?i)go\.partner\.example`)
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	if p.Len() != DefaultPatterns().Len()+1 {
		t.Fatalf("Len = %d", p.Len())
	}
	if _, ok := p.Match("https://GO.partner.example/x"); !ok {
		t.Fatalf("extra pattern not applied")
	}
	if _, err := CompilePatterns(`(`); err == nil {
		t.Fatalf("bad regex accepted")
	}
}
