package batch

import (
	"fmt"
	"path/filepath"

	"ecbatch/internal/config"
	"ecbatch/internal/preflight"
	"ecbatch/internal/stage"
)

// Pipeline is the stage order used by the run command.
var Pipeline = []string{stage.NameMaterialize, stage.NameCreateDB, stage.NameSearch}

// NewHandler constructs the named stage.
func NewHandler(cfg *config.Config, name string, opts ...stage.Option) (stage.Handler, error) {
	switch name {
	case stage.NameMaterialize:
		return stage.NewMaterialize(cfg, opts...), nil
	case stage.NameCreateDB:
		return stage.NewCreateDB(cfg, opts...)
	case stage.NameSearch:
		return stage.NewSearch(cfg, opts...)
	case stage.NameDiamond:
		return stage.NewDiamond(cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}

// Handlers constructs every stage, in pipeline order followed by diamond.
func Handlers(cfg *config.Config, opts ...stage.Option) ([]stage.Handler, error) {
	names := append(append([]string(nil), Pipeline...), stage.NameDiamond)
	handlers := make([]stage.Handler, 0, len(names))
	for _, name := range names {
		handler, err := NewHandler(cfg, name, opts...)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, handler)
	}
	return handlers, nil
}

// ScopeFor returns the preflight checks the named stages need.
func ScopeFor(names ...string) preflight.Scope {
	var scope preflight.Scope
	for _, name := range names {
		switch name {
		case stage.NameMaterialize:
			scope.Partition = true
		case stage.NameCreateDB, stage.NameSearch:
			scope.Foldseek = true
		case stage.NameDiamond:
			scope.Diamond = true
		}
	}
	return scope
}

// ResultLogPath returns the append-only result log for a stage. Database
// builds keep their log beside the databases.
func ResultLogPath(cfg *config.Config, name string) string {
	if name == stage.NameCreateDB {
		return cfg.CreationLogPath()
	}
	return filepath.Join(cfg.Paths.LogDir, name+".log")
}
