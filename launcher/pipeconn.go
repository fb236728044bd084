package launcher

import "os"

// pipeConn joins a read half and a write half of two independent
// os.Pipe() pairs into a single io.ReadWriteCloser, the shape
// peer.Session expects a connection to have. It backs the legacy
// X3270OUTPUT/X3270INPUT line-protocol transport: the child writes
// commands on the pipe this struct reads, and reads results on the
// pipe this struct writes.
type pipeConn struct {
	r *os.File
	w *os.File
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeConn) Close() error {
	rerr := p.r.Close()
	werr := p.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
