package market

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// openData opens path and decompresses it by extension (.xz, .lzma, .gz).
// Anything else is read as is.
func openData(path string) (io.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var r io.Reader
	var closers multiCloser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xz":
		r, err = xz.NewReader(f)
	case ".lzma":
		r, err = lzma.NewReader(f)
	case ".gz":
		var zr *gzip.Reader
		zr, err = gzip.NewReader(f)
		if err == nil {
			closers = append(closers, zr)
		}
		r = zr
	default:
		r = f
	}
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return r, append(closers, f), nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
