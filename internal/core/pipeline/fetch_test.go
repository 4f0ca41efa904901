package pipeline

import (
	"strings"
	"testing"
)

func TestCleanDocument(t *testing.T) {
	page := `<html><head>
		<meta property="og:image" content="/images/hero.jpg">
		<meta property="og:image:width" content="1200">
		<meta property="og:image:height" content="800">
		<script>var tracking = true;</script>
		<style>body { color: red; }</style>
	</head><body>
		<header>Site Header</header>
		<nav>Menu</nav>
		<h1>Pancakes</h1>
		<img src="/images/step1.jpg" width="640" height="480">
		<p>Whisk   the
		batter.</p>
		<img src="data:image/gif;base64,AAA">
		<iframe src="https://ads.example.com"></iframe>
		<footer>Copyright</footer>
	</body></html>`

	doc := mustDoc(t, page)
	result := CleanDocument(doc, "https://site.com/recipes/pancakes")

	if strings.Contains(result.Text, "tracking") || strings.Contains(result.Text, "color: red") {
		t.Errorf("script/style content leaked into text: %q", result.Text)
	}
	for _, stripped := range []string{"Site Header", "Menu", "Copyright"} {
		if strings.Contains(result.Text, stripped) {
			t.Errorf("chrome element %q leaked into text", stripped)
		}
	}
	if !strings.Contains(result.Text, "Whisk the batter.") {
		t.Errorf("whitespace not collapsed: %q", result.Text)
	}
	if !strings.Contains(result.Text, "[IMAGE: https://site.com/images/step1.jpg (640x480)]") {
		t.Errorf("img not replaced with a resolved marker: %q", result.Text)
	}

	if len(result.MarkerCandidates) != 1 {
		t.Fatalf("marker candidates = %+v, data URIs must be dropped", result.MarkerCandidates)
	}
	mc := result.MarkerCandidates[0]
	if mc.Width != 640 || mc.Height != 480 || mc.Source != SourceMarker {
		t.Errorf("marker candidate = %+v", mc)
	}

	if len(result.OGCandidates) != 1 {
		t.Fatalf("og candidates = %+v", result.OGCandidates)
	}
	og := result.OGCandidates[0]
	if og.URL != "https://site.com/images/hero.jpg" {
		t.Errorf("og url = %q, want resolved against base", og.URL)
	}
	if og.Width != 1200 || og.Height != 800 {
		t.Errorf("og dimensions = %dx%d", og.Width, og.Height)
	}
}

func TestCollectOpenGraphImagesMultiple(t *testing.T) {
	page := `<html><head>
		<meta property="og:image" content="https://site.com/a.jpg">
		<meta property="og:image:width" content="100">
		<meta property="og:image" content="https://site.com/b.jpg">
		<meta property="og:image:height" content="200">
	</head></html>`

	got := CollectOpenGraphImages(mustDoc(t, page), "")
	if len(got) != 2 {
		t.Fatalf("candidates = %+v", got)
	}
	if got[0].Width != 100 || got[0].Height != 0 {
		t.Errorf("first = %+v, width tag belongs to the preceding og:image", got[0])
	}
	if got[1].Height != 200 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"absolute untouched", "https://site.com/page", "https://cdn.com/x.jpg", "https://cdn.com/x.jpg"},
		{"relative resolved", "https://site.com/recipes/stew", "/img/x.jpg", "https://site.com/img/x.jpg"},
		{"dotted relative", "https://site.com/recipes/stew", "../img/x.jpg", "https://site.com/img/x.jpg"},
		{"data uri rejected", "https://site.com/", "data:image/gif;base64,AAA", ""},
		{"empty", "https://site.com/", "  ", ""},
		{"no base", "", "/img/x.jpg", "/img/x.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveURL(tt.base, tt.ref); got != tt.want {
				t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}
