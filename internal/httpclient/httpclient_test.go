package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sedar-crawler/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactoryIsolatesCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
			return
		}
		cookie, err := r.Cookie("JSESSIONID")
		if err != nil {
			w.Write([]byte("none"))
			return
		}
		w.Write([]byte(cookie.Value))
	}))
	defer srv.Close()

	factory := NewFactory(Options{RequestsPerSecond: 100}, telemetry.NewRecorder(t))

	first, err := factory()
	require.NoError(t, err)
	_, err = first.R().Get(srv.URL + "/set")
	require.NoError(t, err)

	res, err := first.R().Get(srv.URL + "/get")
	require.NoError(t, err)
	require.Equal(t, "abc", res.String())

	second, err := factory()
	require.NoError(t, err)
	res, err = second.R().Get(srv.URL + "/get")
	require.NoError(t, err)
	require.Equal(t, "none", res.String())
}
