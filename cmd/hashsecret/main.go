// Command hashsecret prints the bcrypt digest for STRUCTURAL_CODE_HASH.
//
//	go run ./cmd/hashsecret 'code'
//	echo 'code' | go run ./cmd/hashsecret
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Dosada05/bracket-sync/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	secret, err := readSecret()
	if err != nil {
		logger.Error("failed to read secret", slog.Any("error", err))
		os.Exit(1)
	}
	if secret == "" {
		logger.Error("secret must not be empty")
		os.Exit(2)
	}

	hash, err := utils.HashSecret(secret, utils.BcryptCost)
	if err != nil {
		logger.Error("failed to hash secret", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readSecret() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
