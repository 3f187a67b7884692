package randomness

import (
	"github.com/holiman/uint256"

	"github.com/eigerco/plague/internal/crypto"
)

// Draw derives the counter-th value in [0, modulus) from word as
// keccak256(word ‖ counter) mod modulus. One delivered word serves a whole
// pass of draws this way.
func Draw(word *uint256.Int, counter uint64, modulus uint64) (uint64, error) {
	if modulus == 0 {
		return 0, ErrZeroModulus
	}
	h := crypto.KeccakWords(word, uint256.NewInt(counter)).Uint256()
	return h.Mod(h, uint256.NewInt(modulus)).Uint64(), nil
}

// Roll derives a single value in [0, modulus) as keccak256(word) mod modulus
func Roll(word *uint256.Int, modulus uint64) (uint64, error) {
	if modulus == 0 {
		return 0, ErrZeroModulus
	}
	h := crypto.KeccakWords(word).Uint256()
	return h.Mod(h, uint256.NewInt(modulus)).Uint64(), nil
}
