package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultSecretsPath = "/var/run/secrets/brink"
	usernameFile       = "username"
	passwordFile       = "password"
	mqttPasswordFile   = "mqtt_password"
)

func secretsDir() string {
	if dir := os.Getenv("BRINK_SECRETS_PATH"); dir != "" {
		return dir
	}
	return defaultSecretsPath
}

// tryLoadFromSecrets reads the portal credentials from mounted secret files.
// A missing directory or file is not an error; the caller falls back to env vars.
func tryLoadFromSecrets() (username, password string, err error) {
	dir := secretsDir()

	if username, err = readSecret(dir, usernameFile); err != nil {
		return "", "", err
	}
	if password, err = readSecret(dir, passwordFile); err != nil {
		return "", "", err
	}
	return username, password, nil
}

// readSecret returns the trimmed content of a secret file, or "" when absent.
func readSecret(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
