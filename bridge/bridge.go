package bridge

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/db"
)

// Bridge moves table data between the engine and files in one permitted
// base directory. Every path and identifier is checked before any file or
// database handle is opened.
type Bridge struct {
	engine *db.Engine
	base   string
	log    *zap.SugaredLogger
	limits db.Limits
}

func New(engine *db.Engine, baseDir string) (*Bridge, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}

	cfg := engine.Config()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Bridge{
		engine: engine,
		base:   base,
		log:    log,
		limits: cfg.Limits,
	}, nil
}

// resolve turns a caller-supplied relative path into an absolute path that
// is guaranteed to stay inside the base directory.
func (b *Bridge) resolve(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", core.Securityf("path cannot be empty")
	}
	if strings.ContainsRune(raw, 0) {
		return "", core.Securityf("path contains a NUL byte")
	}
	if filepath.IsAbs(raw) {
		return "", core.Securityf("path `%s` must be relative", raw)
	}
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return "", core.Securityf("path `%s` contains a parent component", raw)
		}
	}

	resolved := filepath.Clean(filepath.Join(b.base, raw))
	if resolved != b.base && !strings.HasPrefix(resolved, b.base+string(filepath.Separator)) {
		return "", core.Securityf("path `%s` escapes the base directory", raw)
	}
	return resolved, nil
}
