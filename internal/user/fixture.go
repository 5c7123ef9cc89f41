package user

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Proton-105/users-backend/internal/domain"
	"github.com/Proton-105/users-backend/internal/validation"
)

//go:embed fixtures/users.json
var embeddedUsers []byte

// Fixture supplies the records used to bulk-load the store.
type Fixture interface {
	Load() ([]domain.UserCreate, error)
	Name() string
}

type bytesFixture struct {
	name string
	data []byte
}

// EmbeddedFixture returns the 50-user fixture compiled into the binary.
func EmbeddedFixture() Fixture {
	return bytesFixture{name: "embedded", data: embeddedUsers}
}

// BytesFixture returns a fixture decoded from data.
func BytesFixture(name string, data []byte) Fixture {
	return bytesFixture{name: name, data: data}
}

func (f bytesFixture) Name() string {
	return f.name
}

func (f bytesFixture) Load() ([]domain.UserCreate, error) {
	return decodeFixture(f.data)
}

type fileFixture struct {
	path string
}

// FileFixture returns a fixture read from path on every load.
func FileFixture(path string) Fixture {
	return fileFixture{path: path}
}

func (f fileFixture) Name() string {
	return f.path
}

func (f fileFixture) Load() ([]domain.UserCreate, error) {
	// #nosec G304: fixture path comes from deployment configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return decodeFixture(data)
}

// FixtureFromPath picks the file fixture for a non-empty path and the
// embedded one otherwise.
func FixtureFromPath(path string) Fixture {
	if path == "" {
		return EmbeddedFixture()
	}
	return FileFixture(path)
}

func decodeFixture(data []byte) ([]domain.UserCreate, error) {
	var rows []domain.UserPatch
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	records := make([]domain.UserCreate, 0, len(rows))
	for i, row := range rows {
		record, err := validation.ValidateCreate(row)
		if err != nil {
			return nil, fmt.Errorf("fixture record %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}
