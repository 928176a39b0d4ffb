// Package encryption seals and opens the data payload of log records.
// The entire data object is serialized and encrypted as one unit; there
// is no per-field encryption and no plaintext residue next to the
// envelope. Every failure is fail-closed: reported to the error sink and
// swallowed, never raised to the caller.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/model"
)

const (
	keyBytes = 32 // AES-256
	ivBytes  = 12 // GCM standard nonce
	tagBytes = 16 // GCM tag

	// Algorithm is stamped into record encryption metadata.
	Algorithm = "aes-256-gcm"
)

// Codec resolves versioned keys and performs AEAD encrypt/decrypt.
type Codec struct {
	defaultKey []byte
	versioned  map[string][]byte
	version    string
	sink       errsink.Sink
}

// NewCodec parses key material from config. Malformed keys are reported
// to the sink and dropped; a codec with no usable keys passes data
// through unchanged.
func NewCodec(cfg config.EncryptionConfig, sink errsink.Sink) *Codec {
	c := &Codec{version: cfg.Version, versioned: make(map[string][]byte), sink: sink}
	if cfg.Key != "" {
		if key := c.parseKey("default", cfg.Key); key != nil {
			c.defaultKey = key
		}
	}
	for version, material := range cfg.Keys {
		if key := c.parseKey(version, material); key != nil {
			c.versioned[version] = key
		}
	}
	return c
}

// parseKey accepts 64-char hex (32 bytes). Anything else is an audit
// event, not an error.
func (c *Codec) parseKey(version, material string) []byte {
	key, err := hex.DecodeString(material)
	if err != nil || len(key) != keyBytes {
		c.sink.AddError("encryption key rejected", map[string]any{
			"version": version,
			"reason":  "expected 64-char hex (32 bytes)",
		})
		return nil
	}
	return key
}

// KeyFor resolves the key for a version, falling back to the unversioned
// default. Returns nil when no usable key exists.
func (c *Codec) KeyFor(version string) []byte {
	if version != "" {
		if key, ok := c.versioned[version]; ok {
			return key
		}
	}
	return c.defaultKey
}

// Enabled reports whether the codec holds any usable key.
func (c *Codec) Enabled() bool {
	return c.KeyFor(c.version) != nil
}

// Version returns the key version new records are sealed under.
func (c *Codec) Version() string { return c.version }

// EncryptData seals the whole data object. Returns the envelope
// {encrypted, iv, tag} and metadata, or (data, nil) unchanged when no
// key is configured, data is empty, or sealing fails.
func (c *Codec) EncryptData(data map[string]any) (map[string]any, *model.EncryptionInfo) {
	key := c.KeyFor(c.version)
	if key == nil || len(data) == 0 {
		return data, nil
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		c.audit("encrypt: serialize data", err)
		return data, nil
	}
	aead, err := newAEAD(key)
	if err != nil {
		c.audit("encrypt: init cipher", err)
		return data, nil
	}
	iv := make([]byte, ivBytes)
	if _, err := rand.Read(iv); err != nil {
		c.audit("encrypt: generate iv", err)
		return data, nil
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagBytes], sealed[len(sealed)-tagBytes:]

	return map[string]any{
			model.FieldEncrypted: base64.StdEncoding.EncodeToString(ciphertext),
			model.FieldIV:        base64.StdEncoding.EncodeToString(iv),
			model.FieldTag:       base64.StdEncoding.EncodeToString(tag),
		}, &model.EncryptionInfo{
			Version:   c.version,
			Algorithm: Algorithm,
		}
}

// DecryptEntry opens an encrypted envelope. All three sub-fields must be
// present. Any failure, including tag verification, returns nil after an
// audit event; decryption never raises.
func (c *Codec) DecryptEntry(data map[string]any, version string) map[string]any {
	key := c.KeyFor(version)
	if key == nil {
		c.sink.AddError("decrypt: no usable key", map[string]any{"version": version})
		return nil
	}

	ciphertext, ok1 := fieldBytes(data, model.FieldEncrypted)
	iv, ok2 := fieldBytes(data, model.FieldIV)
	tag, ok3 := fieldBytes(data, model.FieldTag)
	if !ok1 || !ok2 || !ok3 {
		c.sink.AddError("decrypt: incomplete envelope", map[string]any{"version": version})
		return nil
	}

	aead, err := newAEAD(key)
	if err != nil {
		c.audit("decrypt: init cipher", err)
		return nil
	}
	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		c.audit("decrypt: open", err)
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(plaintext, &out); err != nil {
		c.audit("decrypt: parse plaintext", err)
		return nil
	}
	return out
}

func (c *Codec) audit(op string, err error) {
	c.sink.AddError("encryption: "+op, map[string]any{"error": err.Error()})
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func fieldBytes(data map[string]any, field string) ([]byte, bool) {
	s, ok := data[field].(string)
	if !ok || s == "" {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
