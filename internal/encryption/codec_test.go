package encryption

import (
	"encoding/base64"
	"reflect"
	"testing"

	"github.com/MadlinksCoding/routelog/internal/config"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/model"
	"github.com/rs/zerolog"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestCodec(t *testing.T, cfg config.EncryptionConfig) (*Codec, *errsink.Memory) {
	t.Helper()
	sink := errsink.NewMemory(zerolog.Nop())
	return NewCodec(cfg, sink), sink
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCodec(t, config.EncryptionConfig{Key: testKey})
	data := map[string]any{"user": "u-1", "amount": 12.5, "nested": map[string]any{"ok": true}}

	enc, info := c.EncryptData(data)
	if info == nil || info.Algorithm != Algorithm {
		t.Fatalf("expected encryption metadata, got %#v", info)
	}
	if !model.IsEncryptedData(enc) {
		t.Fatalf("expected exactly the {encrypted, iv, tag} envelope, got %#v", enc)
	}

	dec := c.DecryptEntry(enc, info.Version)
	want := map[string]any{"user": "u-1", "amount": 12.5, "nested": map[string]any{"ok": true}}
	if !reflect.DeepEqual(dec, want) {
		t.Fatalf("round trip mismatch: %#v", dec)
	}
}

func TestDecrypt_TamperedTagReturnsNil(t *testing.T) {
	c, sink := newTestCodec(t, config.EncryptionConfig{Key: testKey})
	enc, _ := c.EncryptData(map[string]any{"secret": "x"})

	tag, _ := base64.StdEncoding.DecodeString(enc[model.FieldTag].(string))
	tag[0] ^= 0xff
	enc[model.FieldTag] = base64.StdEncoding.EncodeToString(tag)

	if got := c.DecryptEntry(enc, ""); got != nil {
		t.Fatalf("tampered tag must decrypt to nil, got %#v", got)
	}
	if len(sink.AllErrors()) == 0 {
		t.Fatal("tamper failure must be reported to the sink")
	}
}

func TestDecrypt_TamperedCiphertextReturnsNil(t *testing.T) {
	c, _ := newTestCodec(t, config.EncryptionConfig{Key: testKey})
	enc, _ := c.EncryptData(map[string]any{"secret": "x"})

	ct, _ := base64.StdEncoding.DecodeString(enc[model.FieldEncrypted].(string))
	ct[0] ^= 0xff
	enc[model.FieldEncrypted] = base64.StdEncoding.EncodeToString(ct)

	if got := c.DecryptEntry(enc, ""); got != nil {
		t.Fatalf("tampered ciphertext must decrypt to nil, got %#v", got)
	}
}

func TestDecrypt_IncompleteEnvelope(t *testing.T) {
	c, _ := newTestCodec(t, config.EncryptionConfig{Key: testKey})
	enc, _ := c.EncryptData(map[string]any{"secret": "x"})
	delete(enc, model.FieldIV)
	if got := c.DecryptEntry(enc, ""); got != nil {
		t.Fatal("envelope missing iv must decrypt to nil")
	}
}

func TestEncrypt_PassThroughWithoutKey(t *testing.T) {
	c, _ := newTestCodec(t, config.EncryptionConfig{})
	data := map[string]any{"a": 1}
	out, info := c.EncryptData(data)
	if info != nil {
		t.Fatal("no key configured: expected no metadata")
	}
	if !reflect.DeepEqual(out, data) {
		t.Fatal("no key configured: data must pass through unchanged")
	}
}

func TestEncrypt_EmptyDataIsNoop(t *testing.T) {
	c, _ := newTestCodec(t, config.EncryptionConfig{Key: testKey})
	out, info := c.EncryptData(map[string]any{})
	if info != nil || len(out) != 0 {
		t.Fatal("empty data must pass through")
	}
}

func TestVersionedKeys(t *testing.T) {
	v2 := "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"
	c, _ := newTestCodec(t, config.EncryptionConfig{
		Key:     testKey,
		Keys:    map[string]string{"v2": v2},
		Version: "v2",
	})
	enc, info := c.EncryptData(map[string]any{"k": "v"})
	if info.Version != "v2" {
		t.Fatalf("expected v2 metadata, got %q", info.Version)
	}
	if dec := c.DecryptEntry(enc, "v2"); dec == nil {
		t.Fatal("decrypt with versioned key failed")
	}
	// Unknown versions fall back to the default key, which must fail to
	// open a v2-sealed envelope (wrong key) rather than panic.
	if dec := c.DecryptEntry(enc, "v9"); dec != nil {
		t.Fatal("wrong-key decrypt must return nil")
	}
}

func TestBadKeyMaterialDegradesToPassThrough(t *testing.T) {
	c, sink := newTestCodec(t, config.EncryptionConfig{Key: "not-hex"})
	if c.Enabled() {
		t.Fatal("codec with rejected key must report disabled")
	}
	if len(sink.AllErrors()) == 0 {
		t.Fatal("bad key material must be audited")
	}
}
