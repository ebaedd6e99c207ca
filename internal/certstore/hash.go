// Package certstore installs certificates into an Android style CA directory,
// where each file is named after the OpenSSL X509_NAME_hash_old of its subject.
package certstore

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// LegacySubjectHash is X509_NAME_hash_old: the first four bytes of the MD5
// digest of the DER encoded subject, read little-endian. Android looks
// certificates up by this value, so it must not change.
func LegacySubjectHash(rawSubject []byte) uint32 {
	md := md5.Sum(rawSubject)
	return binary.LittleEndian.Uint32(md[:4])
}

// BaseName is the store path of a certificate without its .N suffix.
func BaseName(certPath string, hash uint32) string {
	return fmt.Sprintf("%s%08x", certPath, hash)
}
