package utils

import (
	"crypto/rand"
	"fmt"
)

const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewOrderCode returns a human-readable order identifier such as
// "ORD-7F3KQ2MX". The alphabet omits easily confused characters. Uniqueness
// is enforced by the orders table index; callers retry on collision.
func NewOrderCode() string {

	buf := make([]byte, 8)

	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(fmt.Sprintf("order code generation: %v", err))
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return "ORD-" + string(buf)
}
