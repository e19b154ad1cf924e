package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/roster-ledger-api/internal/models"
	appErrors "github.com/noah-isme/roster-ledger-api/pkg/errors"
	"github.com/noah-isme/roster-ledger-api/pkg/storage"
)

type credentialsFile struct {
	Users map[string]models.User `yaml:"users"`
}

// CredentialsRepository reads and writes the YAML user store. The file is
// re-read on every lookup so edits made by rosterctl apply without a restart.
type CredentialsRepository struct {
	path string
	mu   sync.Mutex
}

// NewCredentialsRepository binds the repository to a YAML file.
func NewCredentialsRepository(path string) *CredentialsRepository {
	return &CredentialsRepository{path: path}
}

// FindByUsername returns the user or ErrNotFound.
func (r *CredentialsRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.read()
	if err != nil {
		return nil, err
	}
	user, ok := file.Users[username]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "user %s not found", username)
	}
	user.Username = username
	return &user, nil
}

// List returns every user sorted by name.
func (r *CredentialsRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.read()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(file.Users))
	for name, u := range file.Users {
		u.Username = name
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Upsert creates or replaces a user and rewrites the file atomically.
func (r *CredentialsRepository) Upsert(ctx context.Context, user models.User) error {
	if user.Username == "" {
		return appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.read()
	if err != nil {
		return err
	}
	if file.Users == nil {
		file.Users = make(map[string]models.User)
	}
	file.Users[user.Username] = user

	out, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	return storage.WriteFileAtomic(r.path, out, 0o600)
}

func (r *CredentialsRepository) read() (credentialsFile, error) {
	var file credentialsFile
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return file, fmt.Errorf("parse credentials: %w", err)
	}
	return file, nil
}
