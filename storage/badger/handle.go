package badger

import (
	"context"
	"io"

	"github.com/poiesic/chrisql/storage"
)

// recordHandle buffers a record in memory. Reads and writes share one offset
// starting at zero; writes overwrite in place and are persisted on Close.
type recordHandle struct {
	ctx    context.Context
	repo   *RecordRepository
	name   string
	data   []byte
	offset int
	dirty  bool
	closed bool
}

var _ storage.Handle = (*recordHandle)(nil)

func (h *recordHandle) Name() string {
	return h.name
}

func (h *recordHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, storage.AccessError("read", h.name, storage.ErrStorageClosed)
	}
	if h.offset >= len(h.data) {
		return 0, io.EOF
	}
	n := copy(p, h.data[h.offset:])
	h.offset += n
	return n, nil
}

func (h *recordHandle) Write(p []byte) (int, error) {
	if h.closed {
		return 0, storage.AccessError("write", h.name, storage.ErrStorageClosed)
	}
	end := h.offset + len(p)
	if end > len(h.data) {
		grown := make([]byte, end)
		copy(grown, h.data)
		h.data = grown
	}
	copy(h.data[h.offset:], p)
	h.offset = end
	if len(p) > 0 {
		h.dirty = true
	}
	return len(p), nil
}

// Close persists buffered writes as one atomic record write.
func (h *recordHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if !h.dirty {
		return nil
	}
	return h.repo.Write(h.ctx, h.name, h.data)
}
