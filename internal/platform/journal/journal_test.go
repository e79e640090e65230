package journal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
  xmlns="http://purl.org/rss/1.0/"
  xmlns:dc="http://purl.org/dc/elements/1.1/"
  xmlns:prism="http://prismstandard.org/namespaces/basic/2.0/">
  <channel rdf:about="http://feeds.aps.org/rss/recent/prl.xml">
    <title>Physical Review Letters</title>
    <link>http://journals.aps.org/prl/</link>
    <description>recent</description>
  </channel>
  <item rdf:about="http://link.aps.org/doi/10.1103/PhysRevLett.132.190001">
    <title>Topological photonics at scale</title>
    <link>http://link.aps.org/doi/10.1103/PhysRevLett.132.190001</link>
    <dc:creator>A. One, B. Two, and C. Three</dc:creator>
    <prism:doi>10.1103/PhysRevLett.132.190001</prism:doi>
    <prism:publicationName>Physical Review Letters</prism:publicationName>
    <prism:section>Atomic, Molecular, and Optical Physics</prism:section>
    <prism:publicationDate>2024-05-06T10:00:00+00:00</prism:publicationDate>
  </item>
</rdf:RDF>`

func TestFetch_ParsesPrism(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/recent/prl.xml", r.URL.Path)
		w.Write([]byte(apsFeed))
	}))
	defer srv.Close()

	cfg := DefaultConfig("aps")
	cfg.FeedURL = srv.URL + "/rss/recent/{cat}.xml"
	cfg.DelayMS = 0
	a, err := NewAdapter(cfg)
	require.NoError(t, err)

	entries, err := a.Fetch(context.Background(), []string{"prl"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "aps", e.Source)
	assert.Equal(t, "prl", e.Category)
	assert.Equal(t, "10.1103/PhysRevLett.132.190001", e.DOI)
	assert.Equal(t, "Physical Review Letters", e.PublicationName)
	assert.Equal(t, "Atomic, Molecular, and Optical Physics", e.Section)
	assert.NotEmpty(t, e.Authors)
}

func TestFetch_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.rss" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(apsFeed))
	}))
	defer srv.Close()

	cfg := DefaultConfig("nature")
	cfg.FeedURL = srv.URL + "/{cat}.rss"
	cfg.DelayMS = 0
	a, err := NewAdapter(cfg)
	require.NoError(t, err)

	entries, err := a.Fetch(context.Background(), []string{"bad", "nphoton"})
	assert.Error(t, err)
	assert.Len(t, entries, 1)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("optica")
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "https://opg.optica.org/rss/optica_feed.xml", cfg.URLFor("optica"))

	cfg.FeedURL = "https://example.com/static.xml"
	assert.Error(t, cfg.Validate())
}
