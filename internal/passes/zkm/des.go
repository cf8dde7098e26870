// Package zkm implements the ZKM DES reference/string decryptor (spec.md
// §4.5): a two-phase pass that recovers direct member references and
// decrypted string literals from dynamic-invoke call sites a ZKM-obfuscated
// class synthesizes at build time.
package zkm

import (
	"crypto/cipher"
	"crypto/des"
	"encoding/binary"
)

func desKeyBytes(key int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(key))
	return b
}

// deriveMask produces the XOR mask ZKM's runtime decryptor folds into a
// harvested constant-pool long before use: a single DES-ECB block decrypt
// of seed under key. crypto/cipher exposes no ECB mode (by design — it's
// unauthenticated and block-count-leaking), so a single block is just one
// direct Block.Decrypt call.
func deriveMask(key int64, seed int64) (int64, error) {
	block, err := des.NewCipher(desKeyBytes(key))
	if err != nil {
		return 0, err
	}
	seedBytes := desKeyBytes(seed)
	out := make([]byte, des.BlockSize)
	block.Decrypt(out, seedBytes)
	return int64(binary.BigEndian.Uint64(out)), nil
}

// decryptStringPayload decrypts a multi-block encrypted string payload
// (the string phase's harvested byte constant) under key using DES-CBC,
// with the IV derived from the key itself the same way ZKM's own runtime
// helper ties IV generation to the call-site key rather than storing it
// separately.
func decryptStringPayload(key int64, payload []byte) ([]byte, error) {
	block, err := des.NewCipher(desKeyBytes(key))
	if err != nil {
		return nil, err
	}
	if len(payload)%des.BlockSize != 0 {
		return nil, cipherBlockSizeError{got: len(payload)}
	}
	iv, err := deriveMask(key, key)
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCDecrypter(block, desKeyBytes(iv))
	out := make([]byte, len(payload))
	mode.CryptBlocks(out, payload)
	return out, nil
}

type cipherBlockSizeError struct{ got int }

func (e cipherBlockSizeError) Error() string {
	return "zkm: encrypted string payload is not a multiple of the DES block size"
}
