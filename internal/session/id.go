package session

import (
	"crypto/rand"
	"fmt"
	"time"
)

// NewID generates a session id of the form client_<epoch-ms>_<random>.
func NewID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("client_%d_%x", time.Now().UnixMilli(), b)
}
