package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/rpdist/pkg/progress"
)

const (
	// rpaKey is fixed so that archives of unchanged files stay identical.
	rpaKey         = 0x42424242
	rpaPlaceholder = "RPA-3.0 XXXXXXXXXXXXXXXX XXXXXXXX\n"
	rpaPadding     = "Made with Ren'Py."
)

// RPA writes version 3 .rpa archives.
type RPA struct {
	Base
}

// NewRPA returns an RPA archiver. It takes no arguments.
func NewRPA(path string, args ...string) (Archiver, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("rpa archiver takes no arguments, got %q", args)
	}
	return &RPA{Base: NewBase(path)}, nil
}

// WriteLength counts the header, one step per regular file, and the index.
func (a *RPA) WriteLength() int {
	return len(a.regularFiles()) + 2
}

type countedWriter struct {
	w io.Writer
	n int64
}

func (cw *countedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type rpaEntry struct {
	name           string
	offset, length int64
}

func (a *RPA) Write() progress.Steps {
	names := a.regularFiles()
	return progress.Run(len(names)+2, func(tick func() bool) error {
		f, err := os.Create(a.path)
		if err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
		defer f.Close()

		bw := bufio.NewWriter(f)
		cw := &countedWriter{w: bw}
		if _, err := io.WriteString(cw, rpaPlaceholder); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
		if !tick() {
			return nil
		}

		index := make([]rpaEntry, 0, len(names))
		for _, name := range names {
			if _, err := io.WriteString(cw, rpaPadding); err != nil {
				return fmt.Errorf("write archive padding: %w", err)
			}
			offset := cw.n
			n, err := copyFile(cw, a.files[name])
			if err != nil {
				return fmt.Errorf("can not read file %s: %w", a.files[name], err)
			}
			index = append(index, rpaEntry{name: name, offset: offset ^ rpaKey, length: n ^ rpaKey})
			if !tick() {
				return nil
			}
		}

		indexOffset := cw.n
		compressed, err := compressIndex(encodeIndex(index))
		if err != nil {
			return fmt.Errorf("compress archive index: %w", err)
		}
		if _, err := cw.Write(compressed); err != nil {
			return fmt.Errorf("write archive index: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush archive: %w", err)
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek archive header: %w", err)
		}
		if _, err := fmt.Fprintf(f, "RPA-3.0 %016x %08x\n", indexOffset, rpaKey); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close archive: %w", err)
		}
		tick()
		return nil
	})
}

func copyFile(w io.Writer, path string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}

func compressIndex(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
