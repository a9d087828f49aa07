package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tickstream/tickstream/internal/utils"
)

// Prints the bcrypt hash for an API key, for use as API_KEY_HASH.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashkey <api-key>")
		os.Exit(1)
	}

	hash, err := utils.HashAPIKey(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to hash api key: %v", err)
	}
	fmt.Println(hash)
}
