package rpcjson

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

func TestServerAnswersOverUnixSocket(t *testing.T) {
	backend := &stubBackend{listProjects: func() ([]domain.Project, error) {
		return []domain.Project{{ID: 1, Name: "Payments"}}, nil
	}}
	path := filepath.Join(t.TempDir(), "td.sock")
	srv, err := Start(path, newTestHandler(backend))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "projects.list",
		"params":  withSession(domain.RoleTester, nil),
		"id":      9,
	}
	require.NoError(t, json.NewEncoder(conn).Encode(req))

	var resp struct {
		Result struct {
			Data []domain.Project `json:"data"`
		} `json:"result"`
		Error *Error `json:"error"`
		ID    int    `json:"id"`
	}
	require.NoError(t, json.NewDecoder(bufio.NewReader(conn)).Decode(&resp))
	require.Nil(t, resp.Error)
	assert.Equal(t, 9, resp.ID)
	require.Len(t, resp.Result.Data, 1)
	assert.Equal(t, "Payments", resp.Result.Data[0].Name)
}

func TestServerRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "td.sock")
	srv, err := Start(path, newTestHandler(&stubBackend{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)

	var resp response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestStartRequiresPath(t *testing.T) {
	_, err := Start(" ", newTestHandler(&stubBackend{}))
	require.Error(t, err)
}

func TestCloseRemovesSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "td.sock")
	srv, err := Start(path, newTestHandler(&stubBackend{}))
	require.NoError(t, err)
	require.NoError(t, srv.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
