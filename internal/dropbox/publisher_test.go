package dropbox

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/sirupsen/logrus"
)

type fakeFiles struct {
	args    []*files.UploadArg
	content []string
	err     error
}

func (f *fakeFiles) Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.args = append(f.args, arg)
	f.content = append(f.content, string(b))
	meta := &files.FileMetadata{Size: uint64(len(b))}
	meta.PathDisplay = arg.Path
	return meta, nil
}

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ALR_x.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPublisher_UploadOverwriteMuted(t *testing.T) {
	fake := &fakeFiles{}
	p := &Publisher{Client: fake, Logger: logrus.New()}

	local := writeTemp(t, "sku,ean\n")
	remote := DatafilesPath("ALR", "ALR_x.csv")
	if err := p.Upload(context.Background(), local, remote); err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if len(fake.args) != 1 {
		t.Fatalf("expected one upload, got %d", len(fake.args))
	}
	arg := fake.args[0]
	if arg.Path != "/macro/datafiles/ALR/ALR_x.csv" {
		t.Fatalf("unexpected remote path %q", arg.Path)
	}
	if arg.Mode == nil || arg.Mode.Tag != files.WriteModeOverwrite {
		t.Fatalf("expected overwrite mode, got %+v", arg.Mode)
	}
	if !arg.Mute {
		t.Fatalf("expected muted upload")
	}
	if fake.content[0] != "sku,ean\n" {
		t.Fatalf("unexpected content %q", fake.content[0])
	}
}

func TestPublisher_UploadError(t *testing.T) {
	p := &Publisher{Client: &fakeFiles{err: errors.New("invalid_access_token")}, Logger: logrus.New()}
	if err := p.Upload(context.Background(), writeTemp(t, "x"), VenditPath("vendit_alr.csv")); err == nil {
		t.Fatalf("expected upload error")
	}
}

func TestPublisher_MissingLocalFile(t *testing.T) {
	fake := &fakeFiles{}
	p := &Publisher{Client: fake, Logger: logrus.New()}
	if err := p.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "/x"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if len(fake.args) != 0 {
		t.Fatalf("nothing should be uploaded")
	}
}

func TestVenditPath(t *testing.T) {
	if got := VenditPath("vendit_alr.csv"); got != "/VENDIT_IMPORT/vendit_alr.csv" {
		t.Fatalf("unexpected vendit path %q", got)
	}
}
