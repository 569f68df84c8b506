package models

import "crypto/rand"

const (
	codeLower  = "abcdefghijklmnopqrstuvwxyz"
	codeUpper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits = "0123456789"
)

// GenerateCode returns a random code of the given length. Used for
// registration approval codes and collaboration invite codes.
func GenerateCode(length int, includeNumbers, includeUppercase bool) string {
	alphabet := codeLower
	if includeNumbers {
		alphabet += codeDigits
	}
	if includeUppercase {
		alphabet += codeUpper
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
