// Package relay forwards an upstream response body to the client while
// feeding a side observer a duplicate view of the same bytes.
package relay

import "io"

// SideObserver receives a copy of every relayed chunk. Chunk must treat p as
// read-only and must not retain it after returning; it runs in-memory work
// only and swallows its own failures. Finish is called once, when the
// upstream body ends cleanly.
type SideObserver interface {
	Chunk(p []byte)
	Finish()
}

// Tee returns a reader yielding exactly the bytes of src, in order. A
// background goroutine drains src and forwards each chunk to the returned
// reader after showing it to obs. Observer outcomes never alter or gate the
// forwarded bytes. When the consumer stops reading (client disconnected), the
// drain loop ends and src is left for the caller to close; an src read error
// is surfaced to the consumer as the reader's error.
func Tee(src io.Reader, obs SideObserver) io.ReadCloser {
	pr, pw := io.Pipe()
	go drain(src, pw, obs)
	return pr
}

func drain(src io.Reader, pw *io.PipeWriter, obs SideObserver) {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			obs.Chunk(chunk)
			// Pipe writes block until the consumer has the bytes, so buf is
			// free for reuse once Write returns.
			if _, werr := pw.Write(chunk); werr != nil {
				pw.CloseWithError(werr)
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				obs.Finish()
				pw.Close()
			} else {
				pw.CloseWithError(err)
			}
			return
		}
	}
}
