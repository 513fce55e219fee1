package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/internal/version"
)

var ErrNoCredentials = errors.New("no ftp credentials given")

type Credentials struct {
	User     string
	Password string
}

// ParseCredentials splits user:password. The password may contain colons.
func ParseCredentials(s string) (Credentials, error) {
	user, pass, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || user == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{User: user, Password: pass}, nil
}

// Conn is the part of *ftp.ServerConn an upload needs.
type Conn interface {
	Login(user, password string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type Dialer func(ctx context.Context, addr string) (Conn, error)

func DialFTP(ctx context.Context, addr string) (Conn, error) {
	return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
}

func InstallerName(v version.Version) string {
	return "nvgt_" + v.Underscored() + ".exe"
}

type Uploader struct {
	Host string
	Dial Dialer
}

func NewUploader(host string) *Uploader {
	return &Uploader{Host: host, Dial: DialFTP}
}

// Upload stores the local file under its base name on the server.
func (u *Uploader) Upload(ctx context.Context, creds Credentials, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	conn, err := u.Dial(ctx, u.Host)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", u.Host, err)
	}
	if err := conn.Login(creds.User, creds.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("logging in to %s: %w", u.Host, err)
	}
	name := filepath.Base(file)
	tlogger.Info("msg", "Uploading", "file", name, "host", u.Host)
	if err := conn.Stor(name, f); err != nil {
		conn.Quit()
		return fmt.Errorf("storing %s: %w", name, err)
	}
	return conn.Quit()
}

// UploadInstaller uploads nvgt_<version>.exe from dir. Release pipelines keep
// going when the mirror is unreachable, so failures are logged as warnings and
// only reported through the return value.
func (u *Uploader) UploadInstaller(ctx context.Context, creds Credentials, dir string, v version.Version) error {
	err := u.Upload(ctx, creds, filepath.Join(dir, InstallerName(v)))
	if err != nil {
		tlogger.Warn("msg", "Cannot upload to ftp", "host", u.Host, "err", err)
	}
	return err
}
