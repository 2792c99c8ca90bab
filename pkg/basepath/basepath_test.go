package basepath

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":             "/",
		"/":            "/",
		"wedding":      "/wedding/",
		"/wedding":     "/wedding/",
		"/wedding/":    "/wedding/",
		" /a//b/ ":     "/a/b/",
		"///photos///": "/photos/",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, Normalize(input), "input %q", input)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/wedding/api/views", Join("/wedding", "/api/views"))
	assert.Equal(t, "/wedding/media/", Join("wedding/", "media/"))
	assert.Equal(t, "/heartbeat", Join("/", "heartbeat"))
	assert.Equal(t, "/wedding/", Join("/wedding", "/"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "https://photos.example.com/wedding/gallery/ABCD", URL("https://photos.example.com", "/wedding/", "/gallery/ABCD"))
	assert.Equal(t, "https://photos.example.com/wedding/gallery/ABCD", URL("https://photos.example.com/wedding/", "wedding", "gallery/ABCD"))
	assert.Equal(t, "https://photos.example.com/gallery/ABCD", URL("https://photos.example.com/", "/", "/gallery/ABCD"))
}

func TestStrip(t *testing.T) {
	p, ok := Strip("/wedding/", "/wedding/gallery/abc")
	require.True(t, ok)
	assert.Equal(t, "/gallery/abc", p)

	p, ok = Strip("/wedding/", "/wedding")
	require.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = Strip("/wedding/", "/other/index.html")
	assert.False(t, ok)

	_, ok = Strip("/wedding/", "/weddingcake")
	assert.False(t, ok)

	p, ok = Strip("/", "/gallery")
	require.True(t, ok)
	assert.Equal(t, "/gallery", p)
}

func TestApply(t *testing.T) {
	assert.Equal(t, "/wedding/assets/app.js", Apply("/wedding/", "/assets/app.js"))
	assert.Equal(t, "/wedding/assets/app.js", Apply("/wedding/", "/wedding/assets/app.js"))
	assert.Equal(t, "assets/app.js", Apply("/wedding/", "assets/app.js"))
	assert.Equal(t, "//cdn.example.com/x.js", Apply("/wedding/", "//cdn.example.com/x.js"))
	assert.Equal(t, "https://example.com/x.js", Apply("/wedding/", "https://example.com/x.js"))
	assert.Equal(t, "/assets/app.js", Apply("/", "/assets/app.js"))
}

const entryDocument = `<!doctype html>
<html>
<head>
<link rel="icon" href="/favicon.ico">
<script type="module" src="/assets/index-abc.js"></script>
<link rel="stylesheet" href="/assets/index-abc.css">
<link rel="preconnect" href="https://fonts.example.com">
</head>
<body><div id="root"></div><img src="logo.png"></body>
</html>`

func TestRewriteHTML(t *testing.T) {
	b, err := RewriteHTML(strings.NewReader(entryDocument), "/wedding")
	require.NoError(t, err)

	out := string(b)

	assert.Contains(t, out, `<base href="/wedding/"/>`)
	assert.Contains(t, out, `href="/wedding/favicon.ico"`)
	assert.Contains(t, out, `src="/wedding/assets/index-abc.js"`)
	assert.Contains(t, out, `href="/wedding/assets/index-abc.css"`)
	assert.Contains(t, out, `href="https://fonts.example.com"`)
	assert.Contains(t, out, `src="logo.png"`)
}

func TestRewriteHTML_ReplacesExistingBase(t *testing.T) {
	b, err := RewriteHTML(strings.NewReader(`<html><head><base href="/"></head><body></body></html>`), "/w/")
	require.NoError(t, err)

	out := string(b)
	assert.Contains(t, out, `<base href="/w/"/>`)
	assert.Equal(t, 1, strings.Count(out, "<base"))
}

func TestLocalReferences(t *testing.T) {
	refs, err := LocalReferences(strings.NewReader(entryDocument))
	require.NoError(t, err)

	assert.Equal(t, []string{"/favicon.ico", "/assets/index-abc.js", "/assets/index-abc.css", "logo.png"}, refs)
}

func TestValidateDist(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":           {Data: []byte(entryDocument)},
		"favicon.ico":          {Data: []byte{0}},
		"assets/index-abc.js":  {Data: []byte("console.log(1)")},
		"assets/index-abc.css": {Data: []byte("body{}")},
		"logo.png":             {Data: []byte{0}},
	}

	assert.NoError(t, ValidateDist(fsys, "/"))

	delete(fsys, "assets/index-abc.css")

	err := ValidateDist(fsys, "/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/assets/index-abc.css")

	err = ValidateDist(fstest.MapFS{}, "/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry document")
}

func TestValidateDist_WithBase(t *testing.T) {
	rewritten, err := RewriteHTML(strings.NewReader(entryDocument), "/wedding/")
	require.NoError(t, err)

	fsys := fstest.MapFS{
		"index.html":           {Data: rewritten},
		"favicon.ico":          {Data: []byte{0}},
		"assets/index-abc.js":  {Data: []byte("")},
		"assets/index-abc.css": {Data: []byte("")},
		"logo.png":             {Data: []byte{0}},
	}

	assert.NoError(t, ValidateDist(fsys, "/wedding/"))

	err = ValidateDist(fsys, "/other/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside base path")
}

func TestHtaccess(t *testing.T) {
	out := Htaccess("wedding")

	assert.Contains(t, out, "RewriteBase /wedding/\n")
	assert.Contains(t, out, "RewriteRule . /wedding/index.html [L]\n")
	assert.Contains(t, out, "RewriteCond %{REQUEST_FILENAME} !-f\n")
}
