package keymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m := New("owner-a")
	fek := m.GenerateFEK()

	pt := []byte("plaintext block contents")
	ct, err := m.EncryptFile(BlockFile, pt, fek)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize(BlockFile), len(ct)-len(pt))

	got, err := m.DecryptFile(BlockFile, ct, fek)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestDecryptWrongOwnerFails(t *testing.T) {
	a := New("owner-a")
	b := New("owner-b")
	fek := a.GenerateFEK()

	ct, err := a.EncryptFile(MetaFile, []byte("meta payload"), fek)
	require.NoError(t, err)

	_, err = b.DecryptFile(MetaFile, ct, fek)
	assert.ErrorIs(t, err, ErrCorruptCiphertext)
}

func TestDecryptWrongFileTypeFails(t *testing.T) {
	m := New("owner-a")
	fek := m.GenerateFEK()

	ct, err := m.EncryptFile(MetaFile, []byte("meta payload"), fek)
	require.NoError(t, err)

	_, err = m.DecryptFile(BlockFile, ct, fek)
	assert.ErrorIs(t, err, ErrCorruptCiphertext)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	m := New("owner-a")
	fek := m.GenerateFEK()

	ct, err := m.EncryptFile(BlockFile, []byte("tamper me"), fek)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xff

	_, err = m.DecryptFile(BlockFile, ct, fek)
	assert.ErrorIs(t, err, ErrCorruptCiphertext)
}

func TestDecryptShortCiphertextFails(t *testing.T) {
	m := New("owner-a")
	fek := m.GenerateFEK()

	_, err := m.DecryptFile(BlockFile, []byte{1, 2, 3}, fek)
	assert.ErrorIs(t, err, ErrCorruptCiphertext)
}
