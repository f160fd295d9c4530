package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestLength 是 Fingerprint 输出的十六进制字符数。
const DigestLength = sha256.Size * 2

// Fingerprint 将请求 key 映射为定长小写十六进制摘要，可直接用作文件名。
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidDigest 判断 digest 是否为 Fingerprint 的合法输出，防止路径穿越。
func ValidDigest(digest string) bool {
	if len(digest) != DigestLength {
		return false
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
