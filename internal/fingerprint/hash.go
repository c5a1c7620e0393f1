// Package fingerprint implements the composed content-hash engine and
// its per-directory on-disk cache (component B).
//
// Grounded on original_source/src/common/fp/combined.c (concatenate a
// cryptographic hash, a second cryptographic hash, a checksum, and a
// length counter; project through a fixed 64-character alphabet) and
// src/cook/fingerprint.c / fingerprint/{calculate,calc_string,
// ingredients}.c for the calculate/cache/differs contract. Per
// spec.md §4.B, the concrete algorithms (MD5, CRC32, Snefru, a length
// counter) are explicitly unspecified beyond their composition; this
// implementation uses SHA-256 standing in for Snefru (both are simply
// "a cryptographic hash" slot in the composition) alongside MD5, CRC32
// and a length counter, matching the four-way concatenation the
// original composes.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
)

// alphabet mirrors the original's base64sane table: digits, lower,
// upper, then two punctuation characters, chosen to be filename- and
// identifier-adjacent.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+/"

var encoding = base64.NewEncoding(alphabet).WithPadding(base64.NoPadding)

// Composed accumulates bytes into all four component hashes at once,
// mirroring combined_addn's fan-out. The two cryptographic components
// buffer their input (crypto/sha256 and crypto/md5's incremental Hash
// types would serve just as well) while crc32 and the length counter
// update incrementally.
type Composed struct {
	runningSha []byte
	runningMD5 []byte
	crc32      uint32
	length     uint64
}

// NewComposed returns a fresh, empty accumulator.
func NewComposed() *Composed { return &Composed{} }

// Write implements io.Writer so a Composed can be used directly as the
// destination of an io.Copy from a file or directory listing.
func (c *Composed) Write(p []byte) (int, error) {
	c.addn(p)
	return len(p), nil
}

// addn feeds bytes through each component hash, mirroring
// combined_addn's sequential fan-out into snefru/md5/crc32/len: crc32
// and the length counter are updated in place, while the bytes are
// appended to the SHA-256 and MD5 buffers that Sum hashes in one go.
func (c *Composed) addn(p []byte) {
	c.crc32 = crc32.Update(c.crc32, crc32.IEEETable, p)
	c.length += uint64(len(p))
	c.runningSha = append(c.runningSha, p...)
	c.runningMD5 = append(c.runningMD5, p...)
}

// Sum finalizes the composition and returns the base64-sane encoded
// fingerprint string, the on-disk / in-API representation used
// everywhere a fp_string appears in the data model.
func (c *Composed) Sum() string {
	sh := sha256.Sum256(c.runningSha)
	m := md5.Sum(c.runningMD5)
	var buf []byte
	buf = append(buf, sh[:]...)
	buf = append(buf, m[:]...)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], c.crc32)
	buf = append(buf, crcBuf[:]...)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], c.length)
	buf = append(buf, lenBuf[:]...)
	return encoding.EncodeToString(buf)
}

// FingerprintBytes computes the composed fingerprint of an in-memory
// byte slice in one call — the fingerprint_string contract (spec.md
// §4.B) used to fingerprint the ordered ingredient-name/content-fp
// list before storing it as a recipe's ingredients fingerprint.
func FingerprintBytes(b []byte) string {
	c := NewComposed()
	c.addn(b)
	return c.Sum()
}

// Identifier projects fingerprint bytes into a 9-character token whose
// leading character is forced to a letter, per spec.md §4.B's
// secondary projection ("used for identifiers"): it is used to derive
// stable, collision-resistant synthetic variable/temp-file names from
// a fingerprint without ever starting with a digit.
func Identifier(fp string) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if fp == "" {
		return "a00000000"
	}
	out := make([]byte, 9)
	out[0] = letters[int(fp[0])%len(letters)]
	for i := 1; i < 9; i++ {
		idx := (i - 1) % len(fp)
		out[i] = alphabet[int(fp[idx])%len(alphabet)]
	}
	return string(out)
}
