// Package deployment manages the persistent identity of a traceability
// server deployment.
package deployment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uuidFileName = "deployment-uuid.txt"

// UUID is a deployment identifier persisted under the data directory so
// the server keeps the same identity across restarts. It is exported on
// the metrics surface to tell deployments apart.
type UUID struct {
	value    string
	filePath string
}

// NewUUID loads the deployment UUID stored in dataDir, generating and
// persisting a fresh one on first start.
func NewUUID(dataDir string) (*UUID, error) {
	filePath := filepath.Join(dataDir, uuidFileName)

	value, err := readUUIDFile(filePath)
	if err != nil {
		return nil, err
	}
	if value == "" {
		value, err = createUUIDFile(dataDir, filePath)
		if err != nil {
			return nil, err
		}
	}

	return &UUID{value: value, filePath: filePath}, nil
}

// readUUIDFile returns the stored identifier, or "" when no file exists
// yet. A file with unparseable content is an error rather than a reason
// to mint a new identity.
func readUUIDFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read UUID file %s: %w", filePath, err)
	}

	value := strings.TrimSpace(string(data))
	if _, err := uuid.Parse(value); err != nil {
		return "", fmt.Errorf("invalid UUID in %s: %w", filePath, err)
	}
	return value, nil
}

// createUUIDFile generates a new identity and writes it to disk,
// creating the data directory if needed.
func createUUIDFile(dataDir, filePath string) (string, error) {
	value, err := generateUUID()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}
	if err := os.WriteFile(filePath, []byte(value+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write UUID to %s: %w", filePath, err)
	}
	return value, nil
}

// String returns the UUID value.
func (u *UUID) String() string {
	return u.value
}

// FilePath returns the path of the backing file.
func (u *UUID) FilePath() string {
	return u.filePath
}

func generateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
