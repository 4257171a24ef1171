package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FilesystemOutput writes message dumps into a directory, clearing
// out dumps from previous runs. The directory is only touched once
// the first message is written, a run that never dumps leaves no
// trace on disk.
type FilesystemOutput struct {
	directory string
	init      sync.Once
	ok        bool
}

func NewFilesystemOutput(dir string) *FilesystemOutput {
	return &FilesystemOutput{directory: dir}
}

func (o *FilesystemOutput) Write(id string, contents string) {
	o.init.Do(func() {
		os.RemoveAll(o.directory)
		err := os.MkdirAll(o.directory, 0777)
		if err != nil {
			slog.Warn("failed to create message info directory",
				"dir", o.directory, "err", err)
			return
		}
		o.ok = true
	})
	if !o.ok {
		return
	}

	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
