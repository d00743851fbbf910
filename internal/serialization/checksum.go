package serialization

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// checksum digests the data section.
func checksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// verify reports ErrChecksumMismatch, with both digest prefixes, when data
// does not hash to stored.
func verify(data []byte, stored [ChecksumSize]byte) error {
	got := checksum(data)
	if got == stored {
		return nil
	}
	return errors.Wrapf(ErrChecksumMismatch, "stored %s, data %s",
		hex.EncodeToString(stored[:4]), hex.EncodeToString(got[:4]))
}
