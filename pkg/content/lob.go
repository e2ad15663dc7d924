package content

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/container"
)

// lobContent returns the size and a reader over a cell headed for large
// object storage.
func lobContent(cell am.Cell) (int64, func() (io.ReadCloser, error), bool) {
	switch c := cell.(type) {
	case *am.BinaryCell:
		return c.Size(), c.Open, true
	case *am.SimpleCell:
		data, _ := c.Data()
		return int64(len(data)), func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(data)), nil
		}, false
	}
	return -1, nil, false
}

// writeLob stores a large object and writes its reference element.
func (e *Encoder) writeLob(ctx context.Context, tag string, level int, cell am.Cell, at Coordinates) error {
	size, open, binary := lobContent(cell)
	if size < 0 || open == nil {
		return nil
	}

	var (
		file   string
		digest string
		err    error
	)
	if e.opts.ExternalLobs {
		file, digest, err = e.writeExternalLob(ctx, size, open, binary, at)
	} else {
		file, digest, err = e.writeInternalLob(ctx, size, open, binary, at)
	}
	if err != nil {
		return err
	}

	attrs := []attr{{"file", file}, {"length", strconv.FormatInt(size, 10)}}
	if e.opts.DigestAlgorithm != "" {
		attrs = append(attrs, attr{"digestType", strings.ToUpper(e.opts.DigestAlgorithm)}, attr{"digest", digest})
	}
	e.xml.emptyTag(tag, level, attrs...)
	e.lobs++
	return nil
}

// writeInternalLob keeps the object beside the table body in the main archive.
func (e *Encoder) writeInternalLob(ctx context.Context, size int64, open func() (io.ReadCloser, error), binary bool, at Coordinates) (string, string, error) {
	name := InternalLobPath(at.Schema, at.Table, at.Column, at.Row, at.Path, binary)
	r, err := open()
	if err != nil {
		return "", "", &LobError{At: at, File: name, Op: "open", Err: err}
	}
	defer r.Close()

	written, digest, err := e.copyObject(ctx, e.main, "", name, r, size)
	if err != nil {
		return "", "", &LobError{At: at, File: name, Op: "write", Err: err}
	}
	e.log.Debugf("wrote %d bytes to %s", written, name)
	return name, digest, nil
}

// writeExternalLob places the object in the column's current external
// container. An object at least as large as the container budget is split
// into parts across successive containers; the digest returned is then the
// one of the last part.
func (e *Encoder) writeExternalLob(ctx context.Context, size int64, open func() (io.ReadCloser, error), binary bool, at Coordinates) (string, string, error) {
	name := ExternalLobName(at.Table, at.Column, at.Row, at.Path, binary)

	p, err := e.ledger.acquire(ctx, at.Column, size)
	if err != nil {
		return "", "", &LobError{At: at, File: name, Op: "rotate", Err: err}
	}
	file := segmentName(p.segment) + "/" + name

	r, err := open()
	if err != nil {
		return "", "", &LobError{At: at, File: file, Op: "open", Err: err}
	}
	defer r.Close()

	budget := e.ledger.budget
	if budget <= 0 || size < budget {
		written, digest, err := e.copyObject(ctx, e.external, p.current, name, r, size)
		if err != nil {
			return "", "", &LobError{At: at, File: file, Op: "write", Err: err}
		}
		e.ledger.record(p, written)
		return file, digest, nil
	}

	var digest string
	remaining := size
	partSize := p.remaining(budget)
	for part := 1; remaining > 0; part++ {
		n := min(partSize, remaining)
		partName := PartName(name, part)
		written, d, err := e.copyObject(ctx, e.external, p.current, partName, r, n)
		if err != nil {
			return "", "", &LobError{At: at, File: container.Join(p.current, partName), Op: "write part", Err: err}
		}
		digest = d
		e.ledger.record(p, written)
		remaining -= written
		partSize = min(budget, remaining)
		if remaining > 0 {
			if err := e.ledger.rotate(ctx, p); err != nil {
				return "", "", &LobError{At: at, File: file, Op: "rotate", Err: err}
			}
		}
	}
	e.log.Debugf("split %d byte object %s across containers up to %s", size, file, p.current)
	return file, digest, nil
}

// copyObject copies exactly n bytes of r into a new file, digesting them.
func (e *Encoder) copyObject(ctx context.Context, store container.Store, containerID, name string, r io.Reader, n int64) (int64, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	w, err := store.Create(ctx, containerID, name)
	if err != nil {
		return 0, "", err
	}
	h, err := newDigest(e.opts.DigestAlgorithm)
	if err != nil {
		w.Close()
		return 0, "", err
	}
	dw := &digestWriter{w: w, h: h}
	_, copyErr := io.CopyN(dw, r, n)
	closeErr := w.Close()
	if copyErr != nil {
		if copyErr == io.EOF {
			copyErr = fmt.Errorf("content ended after %d of %d bytes: %w", dw.count, n, io.ErrUnexpectedEOF)
		}
		return dw.count, "", copyErr
	}
	if closeErr != nil {
		return dw.count, "", closeErr
	}
	if h == nil {
		return dw.count, "", nil
	}
	return dw.count, digestHex(h, e.opts.LowerCaseDigest), nil
}
