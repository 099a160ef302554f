package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
)

// Prints fresh values for ENCRYPTION_KEY and JWT_SECRET.
func main() {
	encKey := make([]byte, 32)
	if _, err := rand.Read(encKey); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	secret := make([]byte, 48)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ENCRYPTION_KEY=%s\n", hex.EncodeToString(encKey))
	fmt.Printf("JWT_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(secret))
}
