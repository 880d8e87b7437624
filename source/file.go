package source

import (
	"context"
	"fmt"

	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/spf13/afero"
)

// FileDataSource reads a file through the virtualized filesystem.
type FileDataSource struct {
	Path     string
	Listener TransferListener
}

type fileStream struct {
	afero.File
	size int64
}

func (f *fileStream) Size() int64 { return f.size }

// Open implements DataSource.
func (d *FileDataSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := filesystem.API().Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", d.Path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", d.Path)
	}

	return metered(&fileStream{File: f, size: info.Size()}, d.Listener), nil
}
