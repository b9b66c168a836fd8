package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"tripplanner/pkg/config"
)

// EnvPassword unlocks the secrets file without a prompt.
const EnvPassword = "TRIPPLANNER_PASSWORD"

// passwordReader reads a password; replaced in tests.
var passwordReader = readPassword //nolint:gochecknoglobals

// unlockSecrets loads the encrypted secrets file when one exists in projectDir
// and returns the password that opened it.
func unlockSecrets(projectDir string) (string, error) {
	if !config.SecretsFileExists(projectDir) {
		return "", nil
	}
	password := os.Getenv(EnvPassword)
	if password == "" {
		var err error
		password, err = passwordReader("🔑 Password for the secrets file: ")
		if err != nil {
			return "", err
		}
	}
	if _, err := config.LoadSecretsFile(projectDir, password); err != nil {
		return "", fmt.Errorf("failed to unlock secrets: %w", err)
	}
	return password, nil
}

// secretsCommand handles "secrets set NAME" and "secrets list".
// The value of "set" is read from stdin, without echo on a terminal.
func secretsCommand(args []string, stdout, stderr io.Writer) int {
	projectDir := "."
	if len(args) >= 2 && args[0] == "-projectdir" {
		projectDir, args = args[1], args[2:]
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: tripplanner secrets [-projectdir DIR] set NAME | list")
		return 2
	}

	password, err := unlockSecrets(projectDir)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	switch args[0] {
	case "list":
		for _, name := range config.GetDecryptedSecretNames() {
			fmt.Fprintln(stdout, name)
		}
		return 0
	case "set":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			fmt.Fprintln(stderr, "usage: tripplanner secrets set NAME")
			return 2
		}
		return setSecret(projectDir, password, args[1], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown secrets command %q\n", args[0])
		return 2
	}
}

// setSecret stores name in the secrets file. password is empty when no file exists yet.
func setSecret(projectDir, password, name string, stdout, stderr io.Writer) int {
	value, err := passwordReader(fmt.Sprintf("Value for %s: ", name))
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	if value == "" {
		fmt.Fprintln(stderr, "❌ empty value, nothing saved")
		return 1
	}

	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	if password == "" {
		if password, err = promptForNewPassword(); err != nil {
			fmt.Fprintf(stderr, "❌ %v\n", err)
			return 1
		}
	}

	config.SetSecret(name, value)
	if err := config.SaveSecretsToFile(projectDir, password); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "✅ %s saved (file permissions: 0600)\n", name)
	return 0
}

// promptForNewPassword asks twice for the password of a new secrets file.
func promptForNewPassword() (string, error) {
	first, err := passwordReader("🔑 New password for the secrets file: ")
	if err != nil {
		return "", err
	}
	second, err := passwordReader("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	return first, nil
}

// readPassword reads one line from stdin, without echo when stdin is a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		defer clear(raw)
		return string(bytes.TrimSpace(raw)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
