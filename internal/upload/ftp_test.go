package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvgt/nvgtbuild/internal/version"
)

type fakeConn struct {
	loginErr error
	user     string
	pass     string
	stored   map[string][]byte
	quit     bool
}

func (c *fakeConn) Login(user, password string) error {
	c.user, c.pass = user, password
	return c.loginErr
}

func (c *fakeConn) Stor(path string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if c.stored == nil {
		c.stored = map[string][]byte{}
	}
	c.stored[path] = buf.Bytes()
	return nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}

func TestParseCredentials(t *testing.T) {
	c, err := ParseCredentials("deploy:se:cret\n")
	require.NoError(t, err)
	require.Equal(t, Credentials{User: "deploy", Password: "se:cret"}, c)

	for _, bad := range []string{"", "deploy", ":pw"} {
		_, err := ParseCredentials(bad)
		require.ErrorIs(t, err, ErrNoCredentials, bad)
	}
}

func TestUploadInstaller(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nvgt_0.89.1_beta.exe"), []byte("installer"), 0644))
	v, err := version.Parse("0.89.1-beta")
	require.NoError(t, err)

	conn := &fakeConn{}
	var dialed string
	u := &Uploader{Host: "nvgt.gg:21", Dial: func(_ context.Context, addr string) (Conn, error) {
		dialed = addr
		return conn, nil
	}}

	require.NoError(t, u.UploadInstaller(context.Background(), Credentials{User: "u", Password: "p"}, dir, v))
	require.Equal(t, "nvgt.gg:21", dialed)
	require.Equal(t, "u", conn.user)
	require.Equal(t, "p", conn.pass)
	require.Equal(t, map[string][]byte{"nvgt_0.89.1_beta.exe": []byte("installer")}, conn.stored)
	require.True(t, conn.quit)
}

func TestUploadLoginFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nvgt_1.0.0_stable.exe")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	conn := &fakeConn{loginErr: errors.New("530 login incorrect")}
	u := &Uploader{Host: "nvgt.gg:21", Dial: func(context.Context, string) (Conn, error) { return conn, nil }}

	err := u.Upload(context.Background(), Credentials{User: "u"}, file)
	require.ErrorContains(t, err, "530")
	require.Empty(t, conn.stored)
	require.True(t, conn.quit)
}

func TestUploadMissingFileDoesNotDial(t *testing.T) {
	u := &Uploader{Host: "nvgt.gg:21", Dial: func(context.Context, string) (Conn, error) {
		t.Fatal("dialed without a file")
		return nil, nil
	}}
	require.Error(t, u.Upload(context.Background(), Credentials{User: "u"}, filepath.Join(t.TempDir(), "missing.exe")))
}
