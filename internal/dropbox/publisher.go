package dropbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	dbx "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/sirupsen/logrus"
)

const (
	datafilesRoot = "/macro/datafiles"
	venditRoot    = "/VENDIT_IMPORT"
)

// FilesClient is the part of the Dropbox files API used for publishing.
type FilesClient interface {
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)
}

type Publisher struct {
	Client FilesClient
	Logger logrus.FieldLogger
}

func New(token string, logger logrus.FieldLogger) *Publisher {
	return &Publisher{
		Client: files.New(dbx.Config{Token: token, LogLevel: dbx.LogOff}),
		Logger: logger,
	}
}

// DatafilesPath is where the archive exports of a supplier live.
func DatafilesPath(supplier, name string) string {
	return path.Join(datafilesRoot, supplier, name)
}

func VenditPath(name string) string {
	return path.Join(venditRoot, name)
}

// Upload copies a local file to remotePath, replacing whatever is there,
// without notifying the folder's users.
func (p *Publisher) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	arg := files.NewUploadArg(remotePath)
	arg.Mode = &files.WriteMode{Tagged: dbx.Tagged{Tag: files.WriteModeOverwrite}}
	arg.Mute = true

	meta, err := p.Client.Upload(arg, f)
	if err != nil {
		return fmt.Errorf("dropbox upload %s: %w", remotePath, err)
	}
	p.Logger.WithFields(logrus.Fields{"path": meta.PathDisplay, "size": meta.Size}).Info("uploaded to dropbox")
	return nil
}
