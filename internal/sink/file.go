package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
)

// FileSink writes "<key> <cluster>" lines. The destination file is created
// only when Write is called, so a run that fails earlier leaves no output.
type FileSink struct {
	path string
	out  io.Writer
}

// NewFileSink writes to path; an empty path or "-" writes to stdout.
func NewFileSink(path string) *FileSink {
	if path == "-" {
		path = ""
	}
	return &FileSink{path: path, out: os.Stdout}
}

// NewWriterSink writes to w.
func NewWriterSink(w io.Writer) *FileSink {
	return &FileSink{out: w}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, a Assignment) error {
	if s.path == "" {
		return writeLines(s.out, a)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.path, err)
	}
	if err := writeLines(f, a); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.path, err)
	}
	return nil
}

func writeLines(w io.Writer, a Assignment) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, item := range a.Items {
		buf = buf[:0]
		buf = append(buf, item.Key...)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(item.Cluster), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (s *FileSink) Close() error { return nil }
