package content

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/redbco/redb-archive/pkg/config"
)

// newDigest returns a hash for algorithm, or nil when digests are disabled.
func newDigest(algorithm string) (hash.Hash, error) {
	name, err := config.NormalizeDigest(algorithm)
	if err != nil {
		return nil, err
	}
	switch name {
	case "":
		return nil, nil
	case config.DigestMD5:
		return md5.New(), nil
	case config.DigestSHA1:
		return sha1.New(), nil
	case config.DigestSHA256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
}

func digestHex(h hash.Hash, lower bool) string {
	s := hex.EncodeToString(h.Sum(nil))
	if lower {
		return s
	}
	return strings.ToUpper(s)
}

// digestWriter counts and optionally hashes what passes through it.
type digestWriter struct {
	w     io.Writer
	h     hash.Hash
	count int64
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if d.h != nil {
		d.h.Write(p[:n])
	}
	d.count += int64(n)
	return n, err
}
