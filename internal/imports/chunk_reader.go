package imports

import (
	"context"
	"io"

	"leadflow/internal/storage"
)

// chunkStreamReader reconstructs the uploaded file by reading chunk objects
// sequentially. Only one chunk is open at a time, so peak memory stays
// independent of file size.
type chunkStreamReader struct {
	ctx   context.Context
	store storage.ChunkStore
	keys  []string
	next  int
	cur   io.ReadCloser
}

func newChunkStreamReader(ctx context.Context, store storage.ChunkStore, keys []string) *chunkStreamReader {
	return &chunkStreamReader{ctx: ctx, store: store, keys: keys}
}

func (r *chunkStreamReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.next >= len(r.keys) {
				return 0, io.EOF
			}
			rc, err := r.store.Get(r.ctx, r.keys[r.next])
			if err != nil {
				return 0, err
			}
			r.cur = rc
			r.next++
		}

		n, err := r.cur.Read(p)
		if err == io.EOF {
			r.cur.Close()
			r.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *chunkStreamReader) Close() error {
	if r.cur != nil {
		err := r.cur.Close()
		r.cur = nil
		return err
	}
	return nil
}
