package fshash

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// EmptyHash is the SHA-1 digest of zero bytes, what HashReader returns
// for an empty reader. HashFile never returns it: zero-length files are
// not hashed (spec §8 Scenario 2).
const EmptyHash = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

// HashFile computes the hex SHA-1 digest of a regular file's contents.
// A zero-length file is not hashed: HashFile returns "" and no error for
// it. Devices, pipes, sockets and other non-regular files are rejected:
// the spec's FileRecord model only tracks the content of regular files.
func HashFile(path string) (string, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", path)
	}
	if !fi.Mode().IsRegular() {
		return "", errors.Errorf("%s: not a regular file (mode %s)", path, fi.Mode())
	}
	if fi.Size() == 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader computes the hex SHA-1 digest of an open reader's contents.
func HashReader(r io.Reader) (string, error) {
	h := sha1.New()
	buf := bufio.NewReaderSize(r, 64*1024)
	if _, err := io.Copy(h, buf); err != nil {
		return "", errors.Wrap(err, "reading file contents")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
