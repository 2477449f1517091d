// Package file provides file-based persistence for flow instances, templates,
// projects and users. One JSON document per record, grouped by entity
// directory. Intended for local development and tests; transactional scope is
// approximated with a process-wide lock.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/flowdesk/flowdesk/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system.
type Persistence struct {
	root string
	mu   sync.Mutex

	instances *InstanceRepository
	templates *TemplateRepository
	projects  *ProjectRepository
	users     *UserRepository
}

// NewPersistence creates the persistence rooted at the given directory,
// creating the per-entity subdirectories.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot}
	fp.instances = &InstanceRepository{persistence: fp}
	fp.templates = &TemplateRepository{persistence: fp}
	fp.projects = &ProjectRepository{persistence: fp}
	fp.users = &UserRepository{persistence: fp}

	for _, dir := range []string{"instances", "templates", "projects", "users"} {
		if err := os.MkdirAll(path.Join(cleanRoot, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return fp, nil
}

func (fp *Persistence) Instances() persistence.InstanceRepository {
	return fp.instances
}

func (fp *Persistence) Templates() persistence.TemplateRepository {
	return fp.templates
}

func (fp *Persistence) Projects() persistence.ProjectRepository {
	return fp.projects
}

func (fp *Persistence) Users() persistence.UserRepository {
	return fp.users
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// readDocument unmarshals one record file into out. Returns (false, nil) when
// the record does not exist.
func (fp *Persistence) readDocument(dir, id string, out any) (bool, error) {
	body, err := os.ReadFile(path.Join(fp.root, dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", dir, id, err)
	}

	return true, nil
}

func (fp *Persistence) writeDocument(dir, id string, record any) error {
	body, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path.Join(fp.root, dir, id+".json"), body, 0o600)
}

func (fp *Persistence) removeDocument(dir, id string) error {
	err := os.Remove(path.Join(fp.root, dir, id+".json"))
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// listIDs returns the record IDs present in an entity directory.
func (fp *Persistence) listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(path.Join(fp.root, dir))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}
