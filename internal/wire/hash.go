package wire

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps domain and data from running into each other.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashDoc canonically encodes d and hashes it under domain.
func HashDoc(domain string, d Doc) (string, error) {
	data, err := MarshalCanonical(d)
	if err != nil {
		return "", err
	}
	return HashWithDomain(domain, data), nil
}
