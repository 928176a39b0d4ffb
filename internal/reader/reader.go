// Package reader parses persisted log files offline and decrypts their
// payloads. Malformed lines never abort a read: they become placeholder
// records and an audit event.
package reader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MadlinksCoding/routelog/internal/encryption"
	"github.com/MadlinksCoding/routelog/internal/errsink"
	"github.com/MadlinksCoding/routelog/internal/model"
)

// ErrSourceMissing distinguishes an absent or unreadable source file
// from per-line parse problems.
var ErrSourceMissing = fmt.Errorf("log source missing or unreadable")

// maxLineBytes bounds a single record line during scanning.
const maxLineBytes = 16 * 1024 * 1024

// Options controls a read.
type Options struct {
	// Limit caps the number of returned records; 0 means all.
	Limit int
	// Decrypt opens encrypted payloads in the returned records.
	Decrypt bool
}

// Reader parses newline-delimited record files.
type Reader struct {
	codec *encryption.Codec
	sink  errsink.Sink
}

// New builds a reader sharing the engine's codec and sink.
func New(codec *encryption.Codec, sink errsink.Sink) *Reader {
	return &Reader{codec: codec, sink: sink}
}

// ReadLogFile parses each line of the file as one record. Lines that are
// not valid JSON yield {"parseError": true, "line": N} placeholders.
func (r *Reader) ReadLogFile(path string, opts Options) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.sink.AddError("malformed log line", map[string]any{
				"path": path, "line": lineNo, "error": err.Error(),
			})
			records = append(records, map[string]any{"parseError": true, "line": lineNo})
		} else {
			if opts.Decrypt {
				r.decryptInPlace(rec)
			}
			records = append(records, rec)
		}
		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan %s: %w", path, err)
	}
	return records, nil
}

// DecryptLogFile decrypts every record of the file and writes the result
// to a sibling *_decrypted file, preserving each line's formatting style.
// Returns the path written.
func (r *Reader) DecryptLogFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	defer f.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.sink.AddError("malformed log line", map[string]any{
				"path": path, "line": lineNo, "error": err.Error(),
			})
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		r.decryptInPlace(rec)
		var rendered []byte
		if strings.Contains(line, `": `) {
			rendered, err = json.MarshalIndent(rec, "", "  ")
		} else {
			rendered, err = json.Marshal(rec)
		}
		if err != nil {
			return "", fmt.Errorf("render line %d: %w", lineNo, err)
		}
		out.Write(rendered)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan %s: %w", path, err)
	}

	dest := decryptedSibling(path)
	if err := os.WriteFile(dest, []byte(out.String()), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

// decryptInPlace swaps the encrypted envelope for the decrypted fields
// and strips encryption metadata. Failed decryption leaves the record as
// stored (the codec has already audited the failure).
func (r *Reader) decryptInPlace(rec map[string]any) {
	data, ok := rec["data"].(map[string]any)
	if !ok || !model.IsEncryptedData(data) {
		return
	}
	version := ""
	if meta, ok := rec["encryption"].(map[string]any); ok {
		version, _ = meta["version"].(string)
	}
	decrypted := r.codec.DecryptEntry(data, version)
	if decrypted == nil {
		return
	}
	rec["data"] = decrypted
	delete(rec, "encryption")
}

// decryptedSibling maps logs/x.log to logs/x_decrypted.log.
func decryptedSibling(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_decrypted" + ext
}
