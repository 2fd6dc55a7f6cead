// Package audit implements the signed file-access audit record that this
// node accepts from clients and gossips to peers: its wire type, the
// canonical serialization used for both signing and Merkle leaf hashing,
// and RSA-SHA256 signature verification.
package audit

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strconv"
)

// FileInfo identifies the file that was accessed.
type FileInfo struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

// UserInfo identifies the actor that accessed the file.
type UserInfo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// Audit is a signed record describing a single file access event. It is
// immutable once signed: Signature and PublicKey cover every other field
// through the canonical serialization produced by Canonicalize.
type Audit struct {
	ReqID      string   `json:"req_id"`
	Timestamp  int64    `json:"timestamp"`
	AccessType string   `json:"access_type"`
	FileInfo   FileInfo `json:"file_info"`
	UserInfo   UserInfo `json:"user_info"`
	Signature  string   `json:"signature"`
	PublicKey  string   `json:"public_key"`
}

// Canonicalize returns the deterministic JSON form of an audit's signed
// fields, used both to verify its signature and as the Merkle leaf input.
// Keys appear in exactly this lexicographic order: access_type, file_info
// (file_id, file_name), req_id, timestamp, user_info (user_id, user_name).
// No extra whitespace is emitted, and the serialization is built by hand
// rather than delegated to a generic encoder, since a struct's or map's
// default field order is not part of this wire contract.
func Canonicalize(a *Audit) []byte {
	var b bytes.Buffer

	b.WriteByte('{')

	b.WriteString(`"access_type":`)
	writeJSONString(&b, a.AccessType)
	b.WriteByte(',')

	b.WriteString(`"file_info":{`)
	b.WriteString(`"file_id":`)
	writeJSONString(&b, a.FileInfo.FileID)
	b.WriteByte(',')
	b.WriteString(`"file_name":`)
	writeJSONString(&b, a.FileInfo.FileName)
	b.WriteString(`},`)

	b.WriteString(`"req_id":`)
	writeJSONString(&b, a.ReqID)
	b.WriteByte(',')

	b.WriteString(`"timestamp":`)
	b.WriteString(strconv.FormatInt(a.Timestamp, 10))
	b.WriteByte(',')

	b.WriteString(`"user_info":{`)
	b.WriteString(`"user_id":`)
	writeJSONString(&b, a.UserInfo.UserID)
	b.WriteByte(',')
	b.WriteString(`"user_name":`)
	writeJSONString(&b, a.UserInfo.UserName)
	b.WriteString(`}`)

	b.WriteByte('}')

	return b.Bytes()
}

// writeJSONString quotes and escapes s the way encoding/json would, without
// pulling in a full Marshal call for a single string value.
func writeJSONString(b *bytes.Buffer, s string) {
	out, _ := json.Marshal(s)
	b.Write(out)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// LeafHash returns the Merkle leaf digest for an audit: the hex SHA-256 of
// its canonical form.
func LeafHash(a *Audit) string {
	return SHA256Hex(Canonicalize(a))
}

// VerifySignature reports whether signatureB64 is a valid RSA-PKCS1v1.5/
// SHA-256 signature over payload, produced by the private key matching
// pubkeyPEM. It fails closed: any decoding or parsing error is treated as
// an invalid signature, never a crash.
func VerifySignature(payload []byte, signatureB64 string, pubkeyPEM string) bool {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	block, _ := pem.Decode([]byte(pubkeyPEM))
	if block == nil {
		return false
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return false
	}

	digest := sha256.Sum256(payload)

	return rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest[:], sig) == nil
}

// Verify checks a's signature over its own canonical form. It is the
// single gate that decides whether an audit may enter the mempool.
func (a *Audit) Verify() bool {
	return VerifySignature(Canonicalize(a), a.Signature, a.PublicKey)
}
