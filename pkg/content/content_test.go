package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Logiciel de caisse certifié</title>
  <meta name="description" content="Comparatif des logiciels de caisse pour commerçants.">
</head>
<body>
  <h1>Choisir   son logiciel
  de caisse</h1>
  <p>Beaucoup de texte ignoré.</p>
</body>
</html>`

func TestExtractText(t *testing.T) {
	text, err := ExtractText(strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t,
		"Logiciel de caisse certifié. Choisir son logiciel de caisse. Comparatif des logiciels de caisse pour commerçants.",
		text)
}

func TestExtractText_MissingPieces(t *testing.T) {
	text, err := ExtractText(strings.NewReader("<html><body><h1>Seul titre</h1></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "Seul titre", text)

	text, err = ExtractText(strings.NewReader("<html><body><p>rien d'utile</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestLoadMirror(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog"), 0o755))
	write := func(rel, title string) {
		page := "<html><head><title>" + title + "</title></head><body></body></html>"
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(page), 0o644))
	}
	write("index.html", "Accueil")
	write(filepath.Join("blog", "index.html"), "Blog")
	write(filepath.Join("blog", "fiscalite.html"), "Guide fiscalité")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("pas du html"), 0o644))

	provider, err := LoadMirror(dir, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, Provider{
		"https://example.com/":               "Accueil",
		"https://example.com/blog/":          "Blog",
		"https://example.com/blog/fiscalite": "Guide fiscalité",
	}, provider)
}

func TestLoadMirror_MissingDir(t *testing.T) {
	_, err := LoadMirror(filepath.Join(t.TempDir(), "absent"), "https://example.com")
	assert.Error(t, err)
}
