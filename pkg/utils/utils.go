package utils

import (
	"crypto/rand"
	"math/big"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomString returns a cryptographically random string of the
// given length drawn from [a-zA-Z0-9].
func GenerateRandomString(length int) string {
	result := make([]byte, length)
	max := big.NewInt(int64(len(randomCharset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure means the platform RNG is unusable
			panic(err)
		}
		result[i] = randomCharset[n.Int64()]
	}
	return string(result)
}

// GenerateNumericCode returns a random numeric code of the given length,
// suitable for emailed one-time passcodes.
func GenerateNumericCode(length int) string {
	result := make([]byte, length)
	ten := big.NewInt(10)
	for i := range result {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			panic(err)
		}
		result[i] = byte('0' + n.Int64())
	}
	return string(result)
}
