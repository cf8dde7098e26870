package zkm

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"testing"
)

func TestDesKeyBytesBigEndian(t *testing.T) {
	got := desKeyBytes(0x0102030405060708)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeriveMaskRoundTrips(t *testing.T) {
	key := int64(0x1122334455667788)
	seed := int64(0x1)
	mask, err := deriveMask(key, seed)
	if err != nil {
		t.Fatalf("deriveMask error: %v", err)
	}

	// Re-encrypting the mask under the same key must recover the seed.
	block, err := des.NewCipher(desKeyBytes(key))
	if err != nil {
		t.Fatalf("des.NewCipher: %v", err)
	}
	out := make([]byte, des.BlockSize)
	block.Encrypt(out, desKeyBytes(mask))
	var got int64
	for _, b := range out {
		got = got<<8 | int64(b)
	}
	if got != seed {
		t.Errorf("re-encrypted mask = %#x, want seed %#x", got, seed)
	}
}

func TestDecryptStringPayloadRoundTrip(t *testing.T) {
	key := int64(0x0807060504030201)
	plaintext := []byte("hello!!!") // exactly one DES block

	iv, err := deriveMask(key, key)
	if err != nil {
		t.Fatalf("deriveMask: %v", err)
	}
	block, err := des.NewCipher(desKeyBytes(key))
	if err != nil {
		t.Fatalf("des.NewCipher: %v", err)
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, desKeyBytes(iv)).CryptBlocks(ciphertext, plaintext)

	got, err := decryptStringPayload(key, ciphertext)
	if err != nil {
		t.Fatalf("decryptStringPayload: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}

func TestDecryptStringPayloadRejectsMisalignedLength(t *testing.T) {
	_, err := decryptStringPayload(1, []byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error for a payload not sized to the DES block size")
	}
}
