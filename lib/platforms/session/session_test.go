package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionKeepsCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "abc", Path: "/"})
			http.Redirect(w, r, "/home", http.StatusFound)
		case "/home":
			cookie, err := r.Cookie("ASP.NET_SessionId")
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(cookie.Value + " " + r.UserAgent()))
		}
	}))
	defer server.Close()

	client, err := New(Options{})
	require.NoError(t, err)

	res, err := client.R().Get(server.URL + "/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
	require.Equal(t, "abc "+UserAgent, res.String())

	// a second session starts without cookies
	other, err := New(Options{})
	require.NoError(t, err)
	res, err = other.R().Get(server.URL + "/home")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode())
}
