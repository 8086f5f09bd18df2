package documents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/session"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file names below follow posix separator rules")
	}
	root := filepath.Join("var", "filings")

	testCases := []struct {
		name     string
		url      string
		expected string
		err      error
	}{
		{
			name:     "plain",
			url:      "http://www.sedar.com/GetFile.do?lang=EN&docClass=13&issuerNo=00020297&fileName=/csfsprod/data140/filings/02155467/00000001/i%3A%5CSEDAR%5CAnnual.pdf",
			expected: filepath.Join(root, "02155467", "00000001", "iSEDARAnnual.pdf"),
		},
		{
			name:     "device name is kept",
			url:      "http://example.test/filings/1/2/con.pdf",
			expected: filepath.Join(root, "1", "2", "con.pdf"),
		},
		{
			name:     "spaces",
			url:      "http://example.test/filings/1/2/Annual%20Report%202015.pdf",
			expected: filepath.Join(root, "1", "2", "Annual_Report_2015.pdf"),
		},
		{
			name:     "nested name is flattened",
			url:      "http://example.test/filings/1/2/sub/dir/doc.pdf",
			expected: filepath.Join(root, "1", "2", "sub_dir_doc.pdf"),
		},
		{
			name: "no filings segment",
			url:  "http://example.test/other/1/2/doc.pdf",
			err:  ErrUnaddressable,
		},
		{
			name: "missing document id",
			url:  "http://example.test/filings/1/doc.pdf",
			err:  ErrUnaddressable,
		},
		{
			name: "parent traversal",
			url:  "http://example.test/filings/../2/doc.pdf",
			err:  ErrUnaddressable,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			path, err := LocalPath(root, test.url)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, path)
		})
	}
}

type documentServer struct {
	*httptest.Server

	lock     sync.Mutex
	requests int
	// rejections is how many of the first requests get a consent wall
	rejections int
	// header switches the rejection from a consent wall to a proxy header
	header bool
}

func newDocumentServer(t testing.TB, rejections int, header bool) *documentServer {
	s := &documentServer{rejections: rejections, header: header}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.requests++
		reject := s.requests <= s.rejections
		s.lock.Unlock()

		if reject && s.header {
			w.Header().Set("X-Powered-By", "Servlet/2.5")
			w.Write([]byte("<html>redirecting</html>"))
			return
		}
		if reject {
			w.Write([]byte("<html><form><input type=submit value='Accept Terms of Use'></form></html>"))
			return
		}
		w.Write([]byte("%PDF-1.4 " + r.URL.Path))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *documentServer) requestCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requests
}

type countingSource struct {
	calls int
}

func (s *countingSource) Acquire(ctx context.Context) (*session.Session, error) {
	s.calls++
	return &session.Session{Http: resty.New(), Attempts: 1}, nil
}

func setup(t *testing.T, maxAttempts int) (Fetcher, *countingSource, string) {
	root := t.TempDir()
	source := &countingSource{}
	opts := DefaultOptions(root)
	opts.MaxAttempts = maxAttempts
	fetcher := NewFetcher(session.NewHolder(source), opts, telemetry.NewRecorder(t))
	return fetcher, source, root
}

func TestFetchIsIdempotent(t *testing.T) {
	server := newDocumentServer(t, 0, false)
	fetcher, source, root := setup(t, 10)

	url := server.URL + "/filings/00000001/00000002/report.pdf"
	first, err := fetcher.Fetch(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "00000001", "00000002", "report.pdf"), first)
	require.Equal(t, 1, server.requestCount())

	content, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 /filings/00000001/00000002/report.pdf", string(content))

	second, err := fetcher.Fetch(context.Background(), url)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, server.requestCount())
	require.Equal(t, 1, source.calls)
}

func TestFetchSkipsExistingFileWithoutSession(t *testing.T) {
	server := newDocumentServer(t, 0, false)
	fetcher, source, root := setup(t, 10)

	existing := filepath.Join(root, "1", "2", "doc.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("from a previous run"), 0644))

	path, err := fetcher.Fetch(context.Background(), server.URL+"/filings/1/2/doc.pdf")
	require.NoError(t, err)
	require.Equal(t, existing, path)
	require.Zero(t, server.requestCount())
	require.Zero(t, source.calls)
}

func TestFetchRecoversFromInvalidation(t *testing.T) {
	testCases := []struct {
		name   string
		header bool
	}{
		{name: "consent wall", header: false},
		{name: "proxy header", header: true},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			server := newDocumentServer(t, 2, test.header)
			fetcher, source, _ := setup(t, 10)

			path, err := fetcher.Fetch(context.Background(), server.URL+"/filings/1/2/doc.pdf")
			require.NoError(t, err)
			require.Equal(t, 3, server.requestCount())
			// the initial session plus one per rejection
			require.Equal(t, 3, source.calls)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NotContains(t, string(content), "Accept Terms of Use")
		})
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	server := newDocumentServer(t, 1000, false)
	fetcher, source, root := setup(t, 3)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/filings/1/2/doc.pdf")
	require.ErrorIs(t, err, ErrSessionRejected)
	require.Equal(t, 3, server.requestCount())
	require.Equal(t, 3, source.calls)

	_, err = os.Stat(filepath.Join(root, "1", "2", "doc.pdf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchDoesNotMemoizeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	fetcher, _, root := setup(t, 10)

	_, err := fetcher.Fetch(context.Background(), server.URL+"/filings/1/2/doc.pdf")
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}
