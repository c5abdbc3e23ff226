package processor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Artifact is a finished output ready to hand to the user
type Artifact struct {
	Name      string
	MediaType string
	Data      []byte
}

// Saver delivers an artifact to the user and returns where it ended up
type Saver interface {
	Save(ctx context.Context, artifact Artifact) (string, error)
}

// DirSaver saves artifacts into a directory. Data goes to a hidden
// transient file first, which is renamed into place and never left behind.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(ctx context.Context, artifact Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+artifact.Name+".*.part")
	if err != nil {
		return "", errors.Wrap(err, "failed to create transient file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(artifact.Data); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "failed to write %s", artifact.Name)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", artifact.Name)
	}

	final := filepath.Join(dir, artifact.Name)
	if err := os.Rename(tmpName, final); err != nil {
		return "", errors.Wrapf(err, "failed to save %s", final)
	}
	return final, nil
}
