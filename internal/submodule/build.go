package submodule

import (
	"context"

	"gitlab.com/gitlab-org/scm-cores/internal/config"
)

// cachedRepo is repo with LoadTree rerouted through a TreeCache, so the
// validator's own root-tree walks (walkToDir, enumerateFiles) share the
// same cache as the tree-diff engine's recursions instead of reloading
// ancestor trees from repo directly.
type cachedRepo struct {
	LargeRepo
	trees *TreeCache
}

func (c *cachedRepo) LoadTree(ctx context.Context, id TreeID) (Tree, error) {
	return c.trees.LoadTree(ctx, id)
}

// New builds a Validator from cfg, fronting repo's tree loads with a
// TreeCache sized per cfg.Submodule.TreeCacheSize and bounding the
// tree-diff engine's recursive fan-out at cfg.Submodule.Fanout (spec
// §4.8 step 7, §9). This is the one place CORE B's tunables (internal/
// config.Submodule) turn into the concrete collaborators ValidateCommit
// needs.
func New(repo LargeRepo, cfg config.Submodule) (*Validator, error) {
	cache, err := NewTreeCache(repo, cfg.TreeCacheSize)
	if err != nil {
		return nil, err
	}

	differ := &TreeDiffer{
		Trees:  cache,
		Blobs:  repo,
		Prefix: cfg.MetadataPrefix,
		Fanout: cfg.Fanout,
	}

	return NewValidator(&cachedRepo{LargeRepo: repo, trees: cache}, differ, cfg.MetadataPrefix), nil
}
