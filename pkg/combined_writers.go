package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// CombinedWriter fans out every write to all the underlying writers,
// e.g. stdout and a rotating log file.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		Writers: writers,
	}
}

func (cw *CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		n += written
	}
	return n, err
}

// Close closes all the writers that are also io.Closers.
func (cw *CombinedWriter) Close() error {
	var err error
	for _, w := range cw.Writers {
		if c, ok := w.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
