package certstore

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
)

var pemStart = []byte("-----BEGIN ")

// Block is one PEM block of the input file.
type Block struct {
	// Raw is the block exactly as it appears in the input, armour included.
	Raw  []byte
	Type string
	Cert *x509.Certificate
	Err  error
}

// Decode splits data into its PEM blocks in file order and parses each as an
// X.509 certificate. Malformed armour is skipped by encoding/pem; blocks that
// are not certificates carry the parse error in Err.
func Decode(data []byte) []Block {
	var blocks []Block
	rest := data
	for len(rest) > 0 {
		block, next := pem.Decode(rest)
		if block == nil {
			break
		}
		chunk := rest[:len(rest)-len(next)]
		// pem.Decode also consumes text preceding the block and any broken
		// blocks before it; the last BEGIN line is where this one starts.
		if i := bytes.LastIndex(chunk, pemStart); i >= 0 {
			chunk = chunk[i:]
		}
		b := Block{Raw: chunk, Type: block.Type}
		b.Cert, b.Err = x509.ParseCertificate(block.Bytes)
		blocks = append(blocks, b)
		rest = next
	}
	return blocks
}
