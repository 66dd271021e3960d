package restyutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDumpResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "secret-session"})
		fmt.Fprint(w, "<html>hello</html>")
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	output, err := NewFilesystemOutput(fs, "/dump")
	require.NoError(t, err)

	client := resty.New()
	DumpResponses(client, output)

	_, err = client.R().Get(server.URL + "/first")
	require.NoError(t, err)
	_, err = client.R().SetFormData(map[string]string{"Password": "hunter2"}).Post(server.URL + "/second")
	require.NoError(t, err)

	first, err := afero.ReadFile(fs, "/dump/001-get.txt")
	require.NoError(t, err)
	require.Contains(t, string(first), "GET "+server.URL+"/first")
	require.Contains(t, string(first), "200 OK")
	require.Contains(t, string(first), "<html>hello</html>")
	require.NotContains(t, string(first), "secret-session")

	second, err := afero.ReadFile(fs, "/dump/002-post.txt")
	require.NoError(t, err)
	require.NotContains(t, string(second), "hunter2")

	_, err = client.R().Get(server.URL + "/third?Password=hunter2")
	require.NoError(t, err)
	third, err := afero.ReadFile(fs, "/dump/003-get.txt")
	require.NoError(t, err)
	require.Contains(t, string(third), "GET "+server.URL+"/third\n")
	require.NotContains(t, string(third), "hunter2")
}

func TestNewFilesystemOutputEmptiesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dump/stale.txt", []byte("old"), 0600))

	output, err := NewFilesystemOutput(fs, "/dump")
	require.NoError(t, err)
	output.Write("new.txt", "new")

	exists, err := afero.Exists(fs, "/dump/stale.txt")
	require.NoError(t, err)
	require.False(t, exists)

	contents, err := afero.ReadFile(fs, "/dump/new.txt")
	require.NoError(t, err)
	require.Equal(t, "new", string(contents))
}
