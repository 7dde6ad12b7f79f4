package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a filesystem source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to the provided filesystem path. The
// returned value is safe for concurrent use by multiple goroutines as long as
// the underlying path location is valid for concurrent reads.
func NewLocal(path string) *Local { return &Local{path: path} }

// Locator returns the configured path.
func (l *Local) Locator() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled or its deadline exceeded at the time
//     of the call, Open returns the context error immediately without touching
//     the filesystem.
//   - Otherwise, Open attempts to open the underlying file and returns the
//     resulting *os.File as an io.ReadCloser. On platforms that support it,
//     the kernel is advised that the read pattern will be sequential.
//   - Any filesystem error is wrapped with the path for context, while still
//     permitting errors.Is/As checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}

// Peek reads up to n bytes from the start of the file.
func (l *Local) Peek(ctx context.Context, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek: n must be > 0")
	}
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	lr := &io.LimitedReader{R: rc, N: int64(n)}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, lr); err != nil && err != io.EOF {
		return nil, err
	}
	return buf.Bytes(), nil
}
