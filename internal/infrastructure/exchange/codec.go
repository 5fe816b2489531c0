// Package exchange reads and writes .tkdprofile files. The checksum is a
// blake2b-256 digest of the JSON encoding of the profiles array.
package exchange

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/tkdojang/dojang/internal/domain/exchange"
	"github.com/tkdojang/dojang/internal/domain/shared"
)

// MaxDocumentSize bounds how much Decode reads.
const MaxDocumentSize = 16 << 20

// Codec seals and opens export documents.
type Codec struct {
	// VerifyChecksum rejects documents whose checksum does not match.
	// Documents without any checksum are rejected either way.
	VerifyChecksum bool
}

// NewCodec returns a Codec that verifies checksums.
func NewCodec() Codec {
	return Codec{VerifyChecksum: true}
}

// Checksum returns the hex digest of bundles.
func Checksum(bundles []exchange.ProfileBundle) (string, error) {
	payload, err := json.Marshal(bundles)
	if err != nil {
		return "", fmt.Errorf("exchange: encode profiles: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Seal stamps doc with its checksum and returns the file contents.
func (c Codec) Seal(doc *exchange.Document) ([]byte, error) {
	if doc == nil {
		return nil, shared.ErrInvalidExportPayload
	}
	sum, err := Checksum(doc.Profiles)
	if err != nil {
		return nil, err
	}
	doc.Checksum = sum
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exchange: encode document: %w", err)
	}
	return out, nil
}

// Encode seals doc onto w.
func (c Codec) Encode(w io.Writer, doc *exchange.Document) error {
	data, err := c.Seal(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Open parses data and checks its version and checksum. Field ranges are
// left to Document.Validate.
func (c Codec) Open(data []byte) (*exchange.Document, error) {
	var doc exchange.Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, shared.WrapError("exchange", "Decode", shared.ErrInvalidFormat, "malformed export document", err)
	}
	if doc.ExportVersion != exchange.FormatVersion {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedExport, doc.ExportVersion)
	}
	if doc.Checksum == "" {
		return nil, shared.ErrChecksumMismatch
	}
	if c.VerifyChecksum {
		want, err := Checksum(doc.Profiles)
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(doc.Checksum)) != 1 {
			return nil, shared.ErrChecksumMismatch
		}
	}
	return &doc, nil
}

// Decode reads at most MaxDocumentSize bytes from r and opens them.
func (c Codec) Decode(r io.Reader) (*exchange.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("exchange: read: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, shared.WrapError("exchange", "Decode", shared.ErrValueOutOfRange, "export document too large", nil)
	}
	return c.Open(data)
}
