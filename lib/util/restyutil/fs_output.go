package restyutil

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilesystemOutput writes every dump to its own file in a directory.
type FilesystemOutput struct {
	fs        afero.Fs
	directory string
}

// NewFilesystemOutput empties dir (creating it if needed) and writes dumps to it.
func NewFilesystemOutput(fs afero.Fs, dir string) (FilesystemOutput, error) {
	err := fs.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = fs.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{fs: fs, directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := afero.WriteFile(o.fs, filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write response dump", "id", id, "err", err)
	}
}
