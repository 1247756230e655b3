// Package archive streams canonical transactions out of compressed delimited-text archives.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

const (
	tarBlockSize   = 512
	tarMagicOffset = 257
)

var tarMagic = []byte("ustar")

// Reader yields normalized transactions from one gzip archive. Bad rows are
// counted and skipped; decompression and I/O failures are returned.
type Reader struct {
	logger *zap.Logger
	gz     *gzip.Reader
	csv    *csv.Reader

	headerDone bool
	rows       int
	skipped    int
}

// NewReader wraps r. The archive may be a gzip stream of delimited text or a
// gzip-compressed tar whose first regular entry holds the text.
func NewReader(r io.Reader, logger *zap.Logger) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}

	body, err := unwrapTar(bufio.NewReaderSize(gz, tarBlockSize))
	if err != nil {
		_ = gz.Close()
		return nil, err
	}

	cr := csv.NewReader(body)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return &Reader{
		logger: logger,
		gz:     gz,
		csv:    cr,
	}, nil
}

func unwrapTar(br *bufio.Reader) (io.Reader, error) {
	head, err := br.Peek(tarBlockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	if len(head) < tarMagicOffset+len(tarMagic) ||
		!bytes.Equal(head[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic) {
		return br, nil
	}

	tr := tar.NewReader(br)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("tar archive has no regular file")
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			return tr, nil
		}
	}
}

// Next returns the next valid transaction, or io.EOF at the end of the archive.
func (r *Reader) Next(ctx context.Context) (model.Transaction, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Transaction{}, err
		}

		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return model.Transaction{}, io.EOF
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && !errors.Is(parseErr.Err, io.ErrUnexpectedEOF) {
			if !r.headerDone {
				r.headerDone = true
				continue
			}
			r.rows++
			r.skip(parseErr.StartLine, err)
			continue
		}
		if err != nil {
			return model.Transaction{}, fmt.Errorf("read archive row: %w", err)
		}

		if !r.headerDone {
			r.headerDone = true
			continue
		}

		r.rows++
		tx, err := Normalize(record)
		if err != nil {
			line, _ := r.csv.FieldPos(0)
			r.skip(line, err)
			continue
		}
		return tx, nil
	}
}

func (r *Reader) skip(line int, err error) {
	r.skipped++
	r.logger.Debug("skipping archive row", zap.Int("line", line), zap.Error(err))
}

// Skipped reports how many rows were dropped so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Rows reports how many data rows were read so far, skipped ones included.
func (r *Reader) Rows() int {
	return r.rows
}

// Close releases the decompressor. It does not close the underlying reader.
func (r *Reader) Close() error {
	return r.gz.Close()
}
