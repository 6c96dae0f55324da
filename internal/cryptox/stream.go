package cryptox

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// StreamChunkSize is the plaintext size of every chunk but the last one.
const StreamChunkSize = 64 * 1024

const streamPrefixSize = NonceSize - 8

var ErrStreamTruncated = errors.New("encrypted stream is truncated or corrupted")

// The stream layout is a random nonce prefix followed by sealed chunks. Chunk
// i is sealed with nonce prefix||uint64(i) and a one byte additional data flag
// that is 1 only for the final chunk, so dropping or reordering chunks fails
// authentication.
func chunkNonce(prefix []byte, counter uint64) []byte {
	nonce := make([]byte, NonceSize)
	copy(nonce, prefix)
	binary.BigEndian.PutUint64(nonce[streamPrefixSize:], counter)
	return nonce
}

func finalFlag(last bool) []byte {
	if last {
		return []byte{1}
	}
	return []byte{0}
}

// readChunk fills buf as far as possible. eof reports that r has no more data
// after the returned bytes.
func readChunk(r io.Reader, buf []byte) (n int, eof bool, err error) {
	n, err = io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, true, nil
	case err != nil:
		return n, false, err
	}
	return n, false, nil
}

// EncryptStream reads plaintext from r and writes the encrypted stream to w.
// ctx is checked between chunks.
func EncryptStream(ctx context.Context, key []byte, r io.Reader, w io.Writer) error {
	if len(key) != KeySize {
		return ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}

	prefix := make([]byte, streamPrefixSize)
	if _, err := rand.Read(prefix); err != nil {
		return err
	}
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("write stream header: %w", err)
	}

	buf := make([]byte, StreamChunkSize)
	out := make([]byte, 0, StreamChunkSize+aead.Overhead())

	for counter := uint64(0); ; counter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, last, err := readChunk(r, buf)
		if err != nil {
			return fmt.Errorf("read chunk %d: %w", counter, err)
		}

		sealed := aead.Seal(out[:0], chunkNonce(prefix, counter), buf[:n], finalFlag(last))
		if _, err := w.Write(sealed); err != nil {
			return fmt.Errorf("write chunk %d: %w", counter, err)
		}

		if last {
			return nil
		}
	}
}

// DecryptStream reverses EncryptStream. A stream cut at a chunk boundary is
// reported as ErrStreamTruncated.
func DecryptStream(ctx context.Context, key []byte, r io.Reader, w io.Writer) error {
	if len(key) != KeySize {
		return ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}

	prefix := make([]byte, streamPrefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return ErrStreamTruncated
	}

	buf := make([]byte, StreamChunkSize+aead.Overhead())
	out := make([]byte, 0, StreamChunkSize)

	for counter := uint64(0); ; counter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, last, err := readChunk(r, buf)
		if err != nil {
			return fmt.Errorf("read chunk %d: %w", counter, err)
		}
		if n < aead.Overhead() {
			return ErrStreamTruncated
		}

		plain, err := aead.Open(out[:0], chunkNonce(prefix, counter), buf[:n], finalFlag(last))
		if err != nil {
			return ErrStreamTruncated
		}
		if _, err := w.Write(plain); err != nil {
			return fmt.Errorf("write chunk %d: %w", counter, err)
		}

		if last {
			return nil
		}
	}
}
