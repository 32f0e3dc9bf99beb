// Package prompts resolves prompt templates, preferring redis overrides so
// operators can tune prompts without a redeploy, falling back to files on
// disk.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/ports/repository"
)

const keyPrefix = "prompt:"

var _ repository.PromptStore = (*Loader)(nil)

type Loader struct {
	kv  repository.KVStore
	dir string
	log *zerolog.Logger
}

// NewLoader builds a loader rooted at dir. kv may be nil, in which case
// only the file fallback is used.
func NewLoader(kv repository.KVStore, dir string, log *zerolog.Logger) *Loader {
	return &Loader{kv: kv, dir: dir, log: log}
}

// Get returns the prompt template named name. A redis value under
// "prompt:<name>" wins; otherwise <dir>/<name>.txt is read. Redis errors
// other than a missing key are logged and treated as a miss.
func (l *Loader) Get(ctx context.Context, name string) (string, error) {
	if l.kv != nil {
		v, err := l.kv.Get(ctx, keyPrefix+name)
		switch {
		case err == nil && strings.TrimSpace(v) != "":
			return v, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			l.log.Warn().Err(err).Str("prompt", name).Msg("prompt store lookup failed, using file fallback")
		}
	}

	path := filepath.Join(l.dir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read prompt %q: %w", name, err)
	}
	return string(data), nil
}

// Render substitutes {{name}} placeholders in a template. Unknown
// placeholders are left intact.
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
