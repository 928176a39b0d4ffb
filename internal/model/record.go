package model

// SchemaVersion is stamped on every persisted record.
const SchemaVersion = 1

// Keys of the encrypted-data envelope that replaces Data wholesale when
// encryption is active. No original fields survive next to these.
const (
	FieldEncrypted = "encrypted"
	FieldIV        = "iv"
	FieldTag       = "tag"
)

// EncryptionInfo is persisted alongside encrypted data so the offline
// decryptor can resolve the right key.
type EncryptionInfo struct {
	Version   string `json:"version,omitempty"`
	Algorithm string `json:"algorithm"`
}

// LogRecord is the on-disk unit: one JSON object per line,
// newline-delimited.
type LogRecord struct {
	SchemaVersion int             `json:"schemaVersion"`
	Timestamp     string          `json:"timestamp"`
	Flag          string          `json:"flag"`
	Level         string          `json:"level"`
	Message       string          `json:"message,omitempty"`
	Data          map[string]any  `json:"data"`
	Encryption    *EncryptionInfo `json:"encryption,omitempty"`
}

// IsEncryptedData reports whether data is exactly the encrypted envelope.
func IsEncryptedData(data map[string]any) bool {
	if len(data) != 3 {
		return false
	}
	_, a := data[FieldEncrypted]
	_, b := data[FieldIV]
	_, c := data[FieldTag]
	return a && b && c
}
