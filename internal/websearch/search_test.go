package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

const ddgPage = `<html><body>
<div class="results">
 <div class="result results_links web-result">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.nature.com%2Farticles%2Fs41566-025-0001&amp;rut=abc">Chip-scale <b>frequency</b> combs</a></h2>
  <a class="result__snippet" href="#">We demonstrate a   chip-scale comb.</a>
 </div>
 <div class="result results_links web-result">
  <h2><a class="result__a" href="https://arxiv.org/abs/2501.00001">Another result</a></h2>
  <a class="result__snippet" href="#">Snippet two</a>
 </div>
 <div class="result results_links web-result">
  <h2><a class="result__a" href="javascript:void(0)">Broken</a></h2>
 </div>
</div></body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, ddgPage)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.Client())
	d.BaseURL = srv.URL
	d.SetInterval(0)

	results, err := d.Search(context.Background(), `"Chip-scale frequency combs"`, 5)
	require.NoError(t, err)
	assert.Equal(t, `"Chip-scale frequency combs"`, gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, "https://www.nature.com/articles/s41566-025-0001", results[0].URL)
	assert.Equal(t, "Chip-scale frequency combs", results[0].Title)
	assert.Equal(t, "We demonstrate a chip-scale comb.", results[0].Snippet)
	assert.Equal(t, "nature.com", results[0].Domain)
	assert.Equal(t, 2, results[1].Rank)

	results, err = d.Search(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDuckDuckGo_CaptchaIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Please complete the CAPTCHA</body></html>`)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(srv.Client())
	d.BaseURL = srv.URL
	d.SetInterval(0)

	_, err := d.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsTransient(err))
}

func TestGoogle_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		assert.Equal(t, "cx", r.URL.Query().Get("cx"))
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		fmt.Fprint(w, `{"items":[{"title":"T","link":"https://doi.org/10.1/abc","snippet":"S"}]}`)
	}))
	defer srv.Close()

	g := NewGoogle(srv.Client(), "key", "cx")
	g.BaseURL = srv.URL
	results, err := g.Search(context.Background(), "q", 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doi.org", results[0].Domain)
}

func TestGoogle_StatusClassification(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
		sentinel  error
	}{
		{http.StatusTooManyRequests, true, ErrRateLimited},
		{http.StatusBadGateway, true, ErrProviderUnavailable},
		{http.StatusBadRequest, false, nil},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			g := NewGoogle(srv.Client(), "key", "cx")
			g.BaseURL = srv.URL
			_, err := g.Search(context.Background(), "q", 3)
			require.Error(t, err)
			assert.Equal(t, tt.transient, errors.Is(err, models.ErrTransient))
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var req tavilyRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.True(t, req.IncludeRawContent)
		assert.Equal(t, 3, req.MaxResults)
		fmt.Fprint(w, `{"results":[{"url":"https://opg.optica.org/optica/abstract.cfm?uri=optica-12-1-1","title":"Paper","content":"short","raw_content":"## Abstract\nWe show [links](https://x.y) work [12]."}]}`)
	}))
	defer srv.Close()

	tv := NewTavily(srv.Client(), "tvly")
	tv.BaseURL = srv.URL
	results, err := tv.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Abstract\nWe show links work .", results[0].Content)
	assert.Equal(t, results[0].Content, results[0].Text())
}

func TestNew(t *testing.T) {
	_, err := New(Config{Provider: ProviderGoogle}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(Config{Provider: ProviderTavily}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(Config{Provider: "bing"}, http.DefaultClient)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	p, err := New(DefaultConfig(), http.DefaultClient)
	require.NoError(t, err)
	assert.Equal(t, ProviderDuckDuckGo, p.Name())
}

func TestCleanContent(t *testing.T) {
	in := "# Title\n![fig](https://img/x.png)See [Ref](https://a.b/c) and results [3], [4-6].\n\n\n\nEnd"
	assert.Equal(t, "Title\nSee Ref and results , .\n\nEnd", CleanContent(in))
}

func TestSameURL(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"https://doi.org/10.1038/s41566-025-0001", "https://www.nature.com/articles/10.1038/S41566-025-0001", true},
		{"https://www.example.org/paper/1/", "http://example.org/paper/1", true},
		{"https://example.org/paper/1", "https://example.org/paper/2", false},
		{"", "https://example.org", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.same, SameURL(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider(
		MockReply{Err: models.ErrTransient},
		MockReply{Results: []Result{{Title: "a"}, {Title: "b"}}},
	)
	_, err := m.Search(context.Background(), "one", 5)
	assert.ErrorIs(t, err, models.ErrTransient)

	res, err := m.Search(context.Background(), "two", 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	_, err = m.Search(context.Background(), "three", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, m.Queries)
}
