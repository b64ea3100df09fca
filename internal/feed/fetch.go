package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"feedsync/internal/config"
)

// ErrNoFeedFile is returned when the server lists no file with the feed prefix.
var ErrNoFeedFile = errors.New("no feed file on server")

// ServerConn is the part of an FTP session the fetcher needs.
type ServerConn interface {
	Login(user, password string) error
	NameList(path string) ([]string, error)
	GetTime(path string) (time.Time, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (ServerConn, error)

type ftpConn struct {
	*ftp.ServerConn
}

func (c ftpConn) Retr(p string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(p)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c ftpConn) GetTime(p string) (time.Time, error) {
	return modTime(c.ServerConn, p)
}

// timeSource is what modTime needs from an FTP session.
type timeSource interface {
	IsGetTimeSupported() bool
	GetTime(path string) (time.Time, error)
	IsTimePreciseInList() bool
	GetEntry(path string) (*ftp.Entry, error)
	List(path string) ([]*ftp.Entry, error)
}

// modTime asks for MDTM when the server advertises it in FEAT. Servers that
// answer MDTM without advertising it are read through MLST, or a LIST of the
// single file as a last resort.
func modTime(s timeSource, p string) (time.Time, error) {
	if s.IsGetTimeSupported() {
		return s.GetTime(p)
	}
	if s.IsTimePreciseInList() {
		e, err := s.GetEntry(p)
		if err != nil {
			return time.Time{}, err
		}
		return e.Time, nil
	}
	entries, err := s.List(p)
	if err != nil {
		return time.Time{}, err
	}
	base := path.Base(p)
	for _, e := range entries {
		if e.Name == base || e.Name == p {
			return e.Time, nil
		}
	}
	if len(entries) == 1 {
		return entries[0].Time, nil
	}
	return time.Time{}, fmt.Errorf("%s not found in listing", p)
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ServerConn, error) {
	c, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return ftpConn{c}, nil
}

type Fetcher struct {
	Addr     string
	User     string
	Password string
	Prefix   string
	Dir      string
	Timeout  time.Duration
	Dial     DialFunc
	Logger   logrus.FieldLogger
}

func NewFetcher(cfg config.FTPConfig, prefix, dir string, logger logrus.FieldLogger) *Fetcher {
	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	return &Fetcher{
		Addr:     addr,
		User:     cfg.User,
		Password: cfg.Password,
		Prefix:   prefix,
		Dir:      dir,
		Timeout:  cfg.Timeout,
		Dial:     dialFTP,
		Logger:   logger,
	}
}

// Fetch downloads the most recently modified feed file and returns its local path.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	conn, err := f.Dial(ctx, f.Addr, f.Timeout)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", f.Addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(f.User, f.Password); err != nil {
		return "", fmt.Errorf("login %s: %w", f.Addr, err)
	}

	name, modified, err := LatestFile(ctx, conn, f.Prefix)
	if err != nil {
		return "", err
	}
	f.Logger.WithFields(logrus.Fields{"file": name, "modified": modified}).Info("latest feed file selected")

	local := filepath.Join(f.Dir, path.Base(name))
	if err := download(conn, name, local); err != nil {
		return "", err
	}
	return local, nil
}

// LatestFile lists the names starting with prefix and returns the one with the
// latest modification time. On equal times the first listed name wins.
func LatestFile(ctx context.Context, conn ServerConn, prefix string) (string, time.Time, error) {
	names, err := conn.NameList("")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("list files: %w", err)
	}

	var latestName string
	var latestTime time.Time
	for _, name := range names {
		if !strings.HasPrefix(path.Base(name), prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", time.Time{}, err
		}
		t, err := conn.GetTime(name)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("modification time of %s: %w", name, err)
		}
		if latestName == "" || t.After(latestTime) {
			latestName, latestTime = name, t
		}
	}
	if latestName == "" {
		return "", time.Time{}, fmt.Errorf("%w: prefix %q", ErrNoFeedFile, prefix)
	}
	return latestName, latestTime, nil
}

func download(conn ServerConn, name, local string) error {
	resp, err := conn.Retr(name)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", name, err)
	}
	defer resp.Close()

	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	return out.Close()
}
