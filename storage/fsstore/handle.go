package fsstore

import (
	"errors"
	"io"

	"github.com/hack-pad/hackpadfs"
	"github.com/poiesic/chrisql/storage"
)

// fileHandle is an open record file. Reads and writes share one offset.
type fileHandle struct {
	name string
	file hackpadfs.File
}

var _ storage.Handle = (*fileHandle)(nil)

func (h *fileHandle) Name() string {
	return h.name
}

func (h *fileHandle) Read(p []byte) (int, error) {
	n, err := h.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, storage.AccessError("read", h.name, err)
	}
	return n, err
}

func (h *fileHandle) Write(p []byte) (int, error) {
	n, err := hackpadfs.WriteFile(h.file, p)
	if err != nil {
		return n, storage.AccessError("write", h.name, err)
	}
	return n, nil
}

func (h *fileHandle) Close() error {
	return h.file.Close()
}
