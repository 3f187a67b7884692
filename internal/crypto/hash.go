package crypto

import (
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

const HashSize = 32

type Hash [HashSize]byte

// KeccakData hashes the concatenation of the input slices using Keccak-256
func KeccakData(data ...[]byte) Hash {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}

	var result Hash
	copy(result[:], hash.Sum(nil))
	return result
}

// KeccakWords hashes the 32-byte big-endian encoding of each word, the same
// layout abi.encode produces for a tuple of uint256 values.
func KeccakWords(words ...*uint256.Int) Hash {
	hash := sha3.NewLegacyKeccak256()
	for _, w := range words {
		b := w.Bytes32()
		hash.Write(b[:])
	}

	var result Hash
	copy(result[:], hash.Sum(nil))
	return result
}

// Uint256 interprets the hash as a big-endian unsigned integer
func (h Hash) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}
