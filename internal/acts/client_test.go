package acts

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restituiri/internal"
	"restituiri/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

const searchPage = `<html><body>
<form name="cauta" action="cauta.php" method="post">
  <input type="hidden" name="tip" value="1">
  <input type="text" name="nr">
  <input type="text" name="data_aprob">
  <input type="submit" name="go" value="Cauta">
</form>
</body></html>`

func htmlResponse(status int, contentType, body string) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", contentType)
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h}
}

func testClient(cfg config.Config, rt roundTripFunc) *Client {
	cfg.ActsBaseURL = "https://acts.example.test/legis/"
	cfg.ActsRPS = 1000
	cfg.ActsTimeoutMs = 1000
	client := NewClient(cfg, nil)
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func TestFetchSavesPDF(t *testing.T) {
	var searched bool
	client := testClient(config.Config{}, func(r *http.Request) (*http.Response, error) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/legis/":
			return htmlResponse(http.StatusOK, "text/html", searchPage), nil
		case r.Method == http.MethodPost && r.URL.Path == "/legis/cauta.php":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "55", r.PostForm.Get("nr"))
			assert.Equal(t, "2005", r.PostForm.Get("data_aprob"))
			assert.Equal(t, "1", r.PostForm.Get("tip"))
			assert.Equal(t, "Cauta", r.PostForm.Get("go"))
			searched = true
			return htmlResponse(http.StatusOK, "text/html", `<a href="act.php?id=9"> Dispozitie nr. 55</a><a href="/despre">Despre</a>`), nil
		case r.URL.Path == "/legis/act.php":
			return htmlResponse(http.StatusOK, "text/html", `<iframe src="/files/55.pdf"></iframe>`), nil
		case r.URL.Path == "/files/55.pdf":
			return htmlResponse(http.StatusOK, "application/pdf", "%PDF-1.4 fake"), nil
		}
		t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		return nil, nil
	})

	dir := t.TempDir()
	task := internal.DownloadTask{CaseNumber: "12", Code: "55", ISODate: "2005-03-01", Year: 2005}
	res, err := client.Fetch(context.Background(), task, dir)
	require.NoError(t, err)
	assert.True(t, searched)
	assert.Equal(t, internal.DownloadSaved, res.Status)
	assert.Equal(t, 1, res.Links)
	assert.Equal(t, filepath.Join(dir, "12_55_2005-03-01.pdf"), res.File)

	raw, err := os.ReadFile(res.File)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(raw))
}

func TestFetchNoResults(t *testing.T) {
	client := testClient(config.Config{}, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			return htmlResponse(http.StatusOK, "text/html", searchPage), nil
		}
		return htmlResponse(http.StatusOK, "text/html", `<p>Nu exista rezultate</p>`), nil
	})

	res, err := client.Fetch(context.Background(), internal.DownloadTask{Code: "1", Year: 2001}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, internal.DownloadNotFound, res.Status)
}

func TestFetchFollowsViewLink(t *testing.T) {
	client := testClient(config.Config{ActsFollowViewLinks: true}, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/legis/":
			return htmlResponse(http.StatusOK, "text/html", searchPage), nil
		case "/legis/cauta.php":
			return htmlResponse(http.StatusOK, "text/html", `<a href="act.php">DL10 / 2005</a>`), nil
		case "/legis/act.php":
			return htmlResponse(http.StatusOK, "text/html", `<a href="doc?id=3">Vezi documentul</a>`), nil
		case "/legis/doc":
			return htmlResponse(http.StatusOK, "application/pdf; charset=binary", "%PDF-1.4 view"), nil
		}
		t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		return nil, nil
	})

	res, err := client.Fetch(context.Background(), internal.DownloadTask{CaseNumber: "7", Code: "3", ISODate: "2005-01-01", Year: 2005}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, internal.DownloadSaved, res.Status)
}

func TestFetchNoPDF(t *testing.T) {
	client := testClient(config.Config{ActsFollowViewLinks: false}, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/legis/":
			return htmlResponse(http.StatusOK, "text/html", searchPage), nil
		case "/legis/cauta.php":
			return htmlResponse(http.StatusOK, "text/html", `<a href="act.php">DISPOZITIE 3</a>`), nil
		case "/legis/act.php":
			return htmlResponse(http.StatusOK, "text/html", `<a href="doc?id=3">Vezi documentul</a>`), nil
		}
		t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		return nil, nil
	})

	res, err := client.Fetch(context.Background(), internal.DownloadTask{CaseNumber: "7", Code: "3", ISODate: "2005-01-01", Year: 2005}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, internal.DownloadNoPDF, res.Status)
}

func TestSearchPortalError(t *testing.T) {
	client := testClient(config.Config{}, func(r *http.Request) (*http.Response, error) {
		return htmlResponse(http.StatusServiceUnavailable, "text/html", "down"), nil
	})

	res, err := client.Fetch(context.Background(), internal.DownloadTask{Code: "1", Year: 2001}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, internal.DownloadError, res.Status)
}

func TestResolvePDFURL(t *testing.T) {
	cases := []struct {
		name    string
		pageURL string
		html    string
		want    string
	}{
		{"direct pdf", "https://a.test/x/Doc.PDF", "", "https://a.test/x/Doc.PDF"},
		{"embed", "https://a.test/x/act", `<embed type="application/pdf" src="../f/1.pdf">`, "https://a.test/f/1.pdf"},
		{"iframe", "https://a.test/x/act", `<iframe src="view.pdf?x=1"></iframe>`, "https://a.test/x/view.pdf?x=1"},
		{"anchor", "https://a.test/x/act", `<a href="/home">home</a><a href="files/2.PDF">doc</a><a href="3.pdf">x</a>`, "https://a.test/x/files/2.PDF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolvePDFURL(tc.pageURL, tc.html)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := ResolvePDFURL("https://a.test/x/act", `<p>nimic</p>`)
	assert.False(t, ok)
}
