package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// MakeRandHexString returns size random bytes encoded as hex (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n cryptographically random bytes.
// It panics if the system random source fails.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// RandBase36 returns n random characters from [0-9a-z].
func RandBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	limit := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(base36Alphabet[idx.Int64()])
	}
	return sb.String()
}

// NewBusinessID builds an identifier of the form PREFIX_<unix ms>_<9 base36 chars>,
// e.g. TXN_1718000000000_k3j9x0a1b.
func NewBusinessID(prefix string, now time.Time) string {
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + RandBase36(9)
}
