package submodule

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"gitlab.com/gitlab-org/scm-cores/internal/log"
)

// Validator checks one commit's declared submodule expansions against
// the large repo's own tree (spec §4.9). Submodules are validated
// sequentially: they thread the commit itself through as a mutable
// accumulator, so parallelism across submodules would add no value
// and would complicate error attribution (spec §5).
type Validator struct {
	Repo   LargeRepo
	Differ *TreeDiffer
	Prefix string
}

// NewValidator builds a Validator. differ handles the recursive
// tree-diff step once a submodule's expansion and manifest trees
// disagree; differ.Prefix should match prefix.
func NewValidator(repo LargeRepo, differ *TreeDiffer, prefix string) *Validator {
	return &Validator{Repo: repo, Differ: differ, Prefix: prefix}
}

// ValidateCommit checks commit against every submodule declared in
// deps, translating small-repo paths through mover, and using
// parentRoots for parents' already-derived root trees (spec §4.9 step
// 6). On success it returns commit unchanged (§8 V1).
func (v *Validator) ValidateCommit(ctx context.Context, commit Commit, deps SubmoduleDeps, mover Mover, parentRoots map[CommitID]TreeID) (Commit, error) {
	var rootTreeID *TreeID

	for submodulePath, subRepo := range deps {
		logger := log.FromContext(ctx).WithField("path", submodulePath.String())

		expansionPath, ok := mover(submodulePath)
		if !ok {
			return Commit{}, &MoverFailed{Path: submodulePath}
		}

		expansionChanged := false
		for changed := range commit.FileChanges {
			if changed.HasPrefix(expansionPath) {
				expansionChanged = true
				break
			}
		}

		metadataPath, err := MetadataPath(v.Prefix, expansionPath)
		if err != nil {
			return Commit{}, err
		}

		metaChange, hasMetaChange := commit.FileChanges[metadataPath]
		switch {
		case !hasMetaChange:
			if expansionChanged {
				return Commit{}, v.violation(logger, I1, "expansion changed without a corresponding metadata file change", expansionPath, metadataPath)
			}
			logger.WithField("recursed", false).Info("submodule: validated expansion")
			continue

		case metaChange.IsDeletion():
			if err := v.checkDeletionConsistency(ctx, commit, expansionPath, parentRoots); err != nil {
				v.logIfViolation(logger, err)
				return Commit{}, err
			}
			logger.WithField("recursed", false).Info("submodule: validated expansion")
			continue
		}

		metaRaw, err := v.Repo.LoadBlob(ctx, metaChange.ContentID)
		if err != nil {
			return Commit{}, &StorageError{Cause: fmt.Errorf("loading metadata blob at %q: %w", metadataPath, err)}
		}
		subCommitHash, err := parseMetadataBlob(metaRaw)
		if err != nil {
			return Commit{}, v.violation(logger, I2, err.Error(), metadataPath)
		}
		subTreeID, err := subRepo.RootTreeAt(ctx, subCommitHash)
		if err != nil {
			return Commit{}, &StorageError{Cause: fmt.Errorf("resolving submodule root tree at %q: %w", submodulePath, err)}
		}

		if rootTreeID == nil {
			id, err := v.deriveRootTree(ctx, commit, parentRoots)
			if err != nil {
				return Commit{}, err
			}
			rootTreeID = &id
		}

		expansionTreeID, err := v.walkToDir(ctx, *rootTreeID, expansionPath)
		if err != nil {
			v.logIfViolation(logger, err)
			return Commit{}, err
		}

		if expansionTreeID == subTreeID {
			logger.WithField("recursed", false).Info("submodule: validated expansion")
			continue
		}

		adjustedDeps := deps.StripPrefix(submodulePath)
		if err := v.Differ.Diff(ctx, expansionPath, expansionTreeID, subTreeID, adjustedDeps); err != nil {
			v.logIfViolation(logger, err)
			return Commit{}, err
		}
		logger.WithField("recursed", true).Info("submodule: validated expansion")
	}

	return commit, nil
}

// violation builds an InvariantViolation and logs it as an error line
// with kind as a structured field (SPEC_FULL.md ambient stack: "one
// error line per invariant violation, with the invariant kind as a
// structured field"), matching the driver's WithRequestID/WithField
// logging style in internal/wireproto.
func (v *Validator) violation(logger *logrus.Entry, kind InvariantKind, reason string, paths ...Path) *InvariantViolation {
	iv := &InvariantViolation{Kind: kind, Reason: reason, Paths: paths}
	logger.WithField("kind", kind).Error("submodule: " + iv.Error())
	return iv
}

// logIfViolation logs err as an invariant-violation error line, with
// the kind field attached, when it is one (for instance a recursive
// tree-diff's own InvariantViolation); other errors (StorageError,
// DerivationError) are not logged here.
func (v *Validator) logIfViolation(logger *logrus.Entry, err error) {
	var iv *InvariantViolation
	if errors.As(err, &iv) {
		logger.WithField("kind", iv.Kind).Error("submodule: " + iv.Error())
	}
}

func (v *Validator) deriveRootTree(ctx context.Context, commit Commit, parentRoots map[CommitID]TreeID) (TreeID, error) {
	for _, p := range commit.Parents {
		if _, ok := parentRoots[p]; !ok {
			return "", &DerivationError{Commit: commit.ID, Cause: fmt.Errorf("parent %q has no already-derived root tree", p)}
		}
	}
	id, err := v.Repo.DeriveRootTree(ctx, commit, parentRoots)
	if err != nil {
		return "", &DerivationError{Commit: commit.ID, Cause: err}
	}
	return id, nil
}

// walkToDir descends rootTreeID through path's components, requiring
// a directory entry at every step, including the last (spec §4.9 step
// 6: "require a directory entry there; if missing or a file, fail").
func (v *Validator) walkToDir(ctx context.Context, rootTreeID TreeID, path Path) (TreeID, error) {
	current := rootTreeID
	for _, c := range path.Components() {
		tree, err := v.Repo.LoadTree(ctx, current)
		if err != nil {
			return "", &StorageError{Cause: fmt.Errorf("loading tree while walking to %q: %w", path, err)}
		}
		entry, ok := tree[c]
		if !ok || !entry.IsDir() {
			return "", &InvariantViolation{
				Kind:   I3,
				Reason: "expansion path is missing or not a directory",
				Paths:  []Path{path},
			}
		}
		current = entry.TreeID
	}
	return current, nil
}

// checkDeletionConsistency implements §4.9's deletion-consistency
// check: either the expansion root was itself replaced (implicit
// deletion, accepted unconditionally), or every non-GitSubmodule file
// that existed under the expansion path in any parent must have an
// explicit deletion entry in this commit.
func (v *Validator) checkDeletionConsistency(ctx context.Context, commit Commit, expansionPath Path, parentRoots map[CommitID]TreeID) error {
	if change, ok := commit.FileChanges[expansionPath]; ok && !change.IsDeletion() {
		return nil
	}

	union := map[Path]struct{}{}
	for _, parentID := range commit.Parents {
		parentRootID, ok := parentRoots[parentID]
		if !ok {
			return &DerivationError{Commit: commit.ID, Cause: fmt.Errorf("parent %q has no already-derived root tree", parentID)}
		}

		dirID, err := v.walkToDir(ctx, parentRootID, expansionPath)
		if err != nil {
			var iv *InvariantViolation
			if errors.As(err, &iv) {
				// the expansion did not exist in this parent.
				continue
			}
			return err
		}

		files, err := v.enumerateFiles(ctx, dirID, expansionPath)
		if err != nil {
			return err
		}
		for p := range files {
			union[p] = struct{}{}
		}
	}

	var missing []Path
	for p := range union {
		if change, ok := commit.FileChanges[p]; !ok || !change.IsDeletion() {
			missing = append(missing, p)
		}
	}
	if len(missing) != 0 {
		return &InvariantViolation{
			Kind:   I4,
			Reason: "metadata file deleted without removing entire expansion",
			Paths:  missing,
		}
	}
	return nil
}

// enumerateFiles recursively lists every non-GitSubmodule file beneath
// treeID (rooted at path at), used to build the parent-union set the
// deletion-consistency check requires full deletion coverage over.
func (v *Validator) enumerateFiles(ctx context.Context, treeID TreeID, at Path) (map[Path]struct{}, error) {
	tree, err := v.Repo.LoadTree(ctx, treeID)
	if err != nil {
		return nil, &StorageError{Cause: fmt.Errorf("loading tree at %q: %w", at, err)}
	}

	out := map[Path]struct{}{}
	for c, entry := range tree {
		p := at.Join(c)
		switch {
		case entry.IsDir():
			nested, err := v.enumerateFiles(ctx, entry.TreeID, p)
			if err != nil {
				return nil, err
			}
			for np := range nested {
				out[np] = struct{}{}
			}
		case entry.FileType != GitSubmodule:
			out[p] = struct{}{}
		}
	}
	return out, nil
}
