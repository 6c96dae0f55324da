// Package models defines client-side data models of the notekeeper core.
package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
)

// CipherEnvelope is the at-rest encrypted representation of a payload.
// Binary fields are standard base64. Cipher carries the Poly1305 tag
// appended to the ciphertext.
type CipherEnvelope struct {
	Alg    string `json:"alg"`
	Nonce  string `json:"nonce"`
	Salt   string `json:"salt,omitempty"`
	Cipher string `json:"cipher"`
	Length int    `json:"length"`
}

// Validate reports whether the envelope has a usable shape.
func (e CipherEnvelope) Validate() error {
	if e.Alg == "" {
		return fmt.Errorf("%w: missing alg", common.ErrMalformedCipher)
	}
	nonce, err := base64.StdEncoding.DecodeString(e.Nonce)
	if err != nil || len(nonce) != cryptox.NonceSize {
		return fmt.Errorf("%w: bad nonce", common.ErrMalformedCipher)
	}
	ct, err := base64.StdEncoding.DecodeString(e.Cipher)
	if err != nil || len(ct) == 0 {
		return fmt.Errorf("%w: bad cipher", common.ErrMalformedCipher)
	}
	if e.Salt != "" {
		if _, err := base64.StdEncoding.DecodeString(e.Salt); err != nil {
			return fmt.Errorf("%w: bad salt", common.ErrMalformedCipher)
		}
	}
	return nil
}

// Seal encrypts plaintext with key into an envelope.
func Seal(key, plaintext []byte) (CipherEnvelope, error) {
	ct, nonce, err := cryptox.Encrypt(key, plaintext)
	if err != nil {
		return CipherEnvelope{}, err
	}
	return CipherEnvelope{
		Alg:    cryptox.Algorithm,
		Nonce:  base64.StdEncoding.EncodeToString(nonce),
		Cipher: base64.StdEncoding.EncodeToString(ct),
		Length: len(plaintext),
	}, nil
}

// Open decrypts the envelope with key. A malformed envelope is an error,
// never silently repaired.
func (e CipherEnvelope) Open(key []byte) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	nonce, _ := base64.StdEncoding.DecodeString(e.Nonce)
	ct, _ := base64.StdEncoding.DecodeString(e.Cipher)
	return cryptox.Decrypt(key, nonce, ct)
}

// SaltBytes decodes the optional salt used for password-derived keys.
func (e CipherEnvelope) SaltBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Salt)
}

type dataKind uint8

const (
	dataNone dataKind = iota
	dataPlain
	dataEncrypted
)

// Data is the body of a content record: either plaintext markup or a cipher
// envelope, never both. Use PlainData / EncryptedData to construct it.
type Data struct {
	kind   dataKind
	plain  string
	cipher CipherEnvelope
}

// PlainData wraps an unencrypted body.
func PlainData(s string) Data {
	return Data{kind: dataPlain, plain: s}
}

// EncryptedData wraps an encrypted body.
func EncryptedData(env CipherEnvelope) Data {
	return Data{kind: dataEncrypted, cipher: env}
}

// IsZero reports whether no variant is set.
func (d Data) IsZero() bool { return d.kind == dataNone }

// IsLocked reports whether the encrypted variant is active.
func (d Data) IsLocked() bool { return d.kind == dataEncrypted }

// Plain returns the plaintext body when the plain variant is active.
func (d Data) Plain() (string, bool) {
	return d.plain, d.kind == dataPlain
}

// Cipher returns the envelope when the encrypted variant is active.
func (d Data) Cipher() (CipherEnvelope, bool) {
	return d.cipher, d.kind == dataEncrypted
}

// IsEmpty reports whether d is an unlocked body with no visible content.
func (d Data) IsEmpty() bool {
	s, ok := d.Plain()
	return ok && IsEmptyBody(s)
}

// Equal compares variant and payload.
func (d Data) Equal(o Data) bool {
	return d.kind == o.kind && d.plain == o.plain && d.cipher == o.cipher
}

func (d Data) MarshalJSON() ([]byte, error) {
	switch d.kind {
	case dataPlain:
		return json.Marshal(d.plain)
	case dataEncrypted:
		return json.Marshal(d.cipher)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is strict: a JSON string is plaintext, an object must be a
// valid cipher envelope. Loose input goes through DecodeLooseData instead.
func (d *Data) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = Data{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = PlainData(s)
		return nil
	}
	var env CipherEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedCipher, err)
	}
	if err := env.Validate(); err != nil {
		return err
	}
	*d = EncryptedData(env)
	return nil
}

// InvalidContentPrefix starts the placeholder stored for unrecognised input.
const InvalidContentPrefix = "<p>Content is invalid: "

var cipherKeys = []string{"alg", "nonce", "cipher"}

// DecodeLooseData turns loosely shaped inbound JSON into Data:
//
//   - a JSON string is plaintext;
//   - an object with a string "data" field is plaintext of that field;
//   - an object with a valid cipher shape is encrypted;
//   - an object carrying any cipher key but failing validation is rejected
//     with common.ErrMalformedCipher;
//   - anything else becomes a visible placeholder body.
func DecodeLooseData(raw json.RawMessage) (Data, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Data{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return PlainData(s), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return invalidPlaceholder(raw), nil
	}

	if inner, ok := obj["data"]; ok {
		if err := json.Unmarshal(inner, &s); err == nil {
			return PlainData(s), nil
		}
	}

	for _, k := range cipherKeys {
		if _, ok := obj[k]; ok {
			var env CipherEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Data{}, fmt.Errorf("%w: %v", common.ErrMalformedCipher, err)
			}
			if err := env.Validate(); err != nil {
				return Data{}, err
			}
			return EncryptedData(env), nil
		}
	}

	return invalidPlaceholder(raw), nil
}

func invalidPlaceholder(raw json.RawMessage) Data {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		compact.Reset()
		compact.Write(raw)
	}
	return PlainData(InvalidContentPrefix + compact.String() + "</p>")
}

// IsEmptyBody reports whether markup carries no visible content.
func IsEmptyBody(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || t == common.EmptyContentBody
}
