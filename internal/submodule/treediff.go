package submodule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// TreeDiffer implements the recursive tree-diff engine (spec §4.8):
// given an expansion-side tree and a sub-repo-side tree, confirm they
// agree everywhere except at recursive-submodule boundaries, where the
// expansion side carries an expanded directory plus a metadata file
// and the sub-repo side carries a single GitSubmodule-typed entry.
type TreeDiffer struct {
	Trees  TreeStore
	Blobs  Blobstore
	Prefix string
	// Fanout bounds how many queued recursive diffs run concurrently
	// (§4.8 step 7, §5, §9's suggested default of 100).
	Fanout int
}

// Diff compares the tree at eTreeID (expansion side, rooted at path
// at) against sTreeID (sub-repo side), using deps to resolve any
// recursive submodules declared beneath at.
func (d *TreeDiffer) Diff(ctx context.Context, at Path, eTreeID, sTreeID TreeID, deps SubmoduleDeps) error {
	eTree, err := d.Trees.LoadTree(ctx, eTreeID)
	if err != nil {
		return &StorageError{Cause: fmt.Errorf("loading expansion tree at %q: %w", at, err)}
	}
	sTree, err := d.Trees.LoadTree(ctx, sTreeID)
	if err != nil {
		return &StorageError{Cause: fmt.Errorf("loading submodule manifest tree at %q: %w", at, err)}
	}

	onlyE, onlyS := diffEntries(eTree, sTree)

	sDirs := map[PathComponent]TreeEntry{}
	sFiles := map[PathComponent]TreeEntry{}
	for c, e := range onlyS {
		if e.IsDir() {
			sDirs[c] = e
		} else {
			sFiles[c] = e
		}
	}

	for c := range onlyS {
		if _, ok := onlyE[c]; !ok {
			return &InvariantViolation{
				Kind:   I3,
				Reason: "path in submodule manifest but not in expansion",
				Paths:  []Path{at.Join(c)},
			}
		}
	}

	matchesS := map[PathComponent]TreeEntry{}
	metaCandidates := map[PathComponent]TreeEntry{}
	for c, e := range onlyE {
		_, inSDirs := sDirs[c]
		_, inSFiles := sFiles[c]
		if inSDirs || inSFiles {
			if !e.IsDir() {
				return &InvariantViolation{
					Kind:   I3,
					Reason: "path present in submodule manifest can't be a file in expansion",
					Paths:  []Path{at.Join(c)},
				}
			}
			matchesS[c] = e
			continue
		}
		if !e.IsFile() {
			return &InvariantViolation{
				Kind:   I3,
				Reason: "expansion directory has no counterpart in submodule manifest",
				Paths:  []Path{at.Join(c)},
			}
		}
		metaCandidates[c] = e
	}

	type recursion struct {
		at      Path
		eTreeID TreeID
		sTreeID TreeID
		deps    SubmoduleDeps
	}
	var recursions []recursion

	// Sequential fold (§5): every iteration mutates sDirs/sFiles/
	// metaCandidates, so this loop must not run concurrently with
	// itself. Only the recursions collected below fan out.
	for c, eEntry := range matchesS {
		childAt := at.Join(c)
		adjustedDeps := deps.StripPrefix(Path(c))

		if dirEntry, ok := sDirs[c]; ok {
			delete(sDirs, c)
			recursions = append(recursions, recursion{childAt, eEntry.TreeID, dirEntry.TreeID, adjustedDeps})
			continue
		}

		fileEntry, ok := sFiles[c]
		if !ok || fileEntry.FileType != GitSubmodule {
			return &InvariantViolation{
				Kind:   I3,
				Reason: "path present in submodule manifest but not declared as a git submodule",
				Paths:  []Path{childAt},
			}
		}
		delete(sFiles, c)

		metaName := metadataBasename(d.Prefix, c)
		metaEntry, ok := metaCandidates[metaName]
		if !ok {
			return &InvariantViolation{
				Kind:   I1,
				Reason: "expanded submodule directory is missing its metadata file",
				Paths:  []Path{childAt, at.Join(metaName)},
			}
		}
		delete(metaCandidates, metaName)

		metaRaw, err := d.Blobs.LoadBlob(ctx, metaEntry.BlobID)
		if err != nil {
			return &StorageError{Cause: fmt.Errorf("loading metadata blob at %q: %w", at.Join(metaName), err)}
		}
		metaHash, err := parseMetadataBlob(metaRaw)
		if err != nil {
			return &InvariantViolation{
				Kind:   I2,
				Reason: err.Error(),
				Paths:  []Path{at.Join(metaName)},
			}
		}

		subRaw, err := d.Blobs.LoadBlob(ctx, fileEntry.BlobID)
		if err != nil {
			return &StorageError{Cause: fmt.Errorf("loading git submodule pointer at %q: %w", childAt, err)}
		}
		subHash, err := ParseGitHash(subRaw)
		if err != nil {
			return &InvariantViolation{
				Kind:   I2,
				Reason: fmt.Sprintf("git submodule pointer is not a valid hash: %s", err),
				Paths:  []Path{childAt},
			}
		}
		if metaHash != subHash {
			return &InvariantViolation{
				Kind:   I2,
				Reason: fmt.Sprintf("metadata file hash %s does not match submodule pointer hash %s", metaHash, subHash),
				Paths:  []Path{at.Join(metaName), childAt},
			}
		}

		subRepo, ok := deps[Path(c)]
		if !ok {
			return &InvariantViolation{
				Kind:   I3,
				Reason: "recursive submodule has no declared sub-repo dependency",
				Paths:  []Path{childAt},
			}
		}
		innerTreeID, err := subRepo.RootTreeAt(ctx, metaHash)
		if err != nil {
			return &StorageError{Cause: fmt.Errorf("resolving root tree for %q at %s: %w", childAt, metaHash, err)}
		}

		recursions = append(recursions, recursion{childAt, eEntry.TreeID, innerTreeID, adjustedDeps})
	}

	if len(sDirs) != 0 || len(sFiles) != 0 || len(metaCandidates) != 0 {
		var residual []Path
		for c := range sDirs {
			residual = append(residual, at.Join(c))
		}
		for c := range sFiles {
			residual = append(residual, at.Join(c))
		}
		for c := range metaCandidates {
			residual = append(residual, at.Join(c))
		}
		return &InvariantViolation{
			Kind:   I3,
			Reason: "leftover entries after tree diff",
			Paths:  residual,
		}
	}

	if len(recursions) == 0 {
		return nil
	}

	fanout := d.Fanout
	if fanout <= 0 {
		fanout = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(fanout)
	for _, r := range recursions {
		r := r
		group.Go(func() error {
			return d.Diff(groupCtx, r.at, r.eTreeID, r.sTreeID, r.deps)
		})
	}
	return group.Wait()
}

// diffEntries computes the asymmetric set differences used by §4.8
// steps 1-2: entries identical on both sides (same component, same
// TreeEntry) are dropped as validated matches; everything else is
// attributed to whichever side it came from.
func diffEntries(eTree, sTree Tree) (onlyE, onlyS map[PathComponent]TreeEntry) {
	onlyE = map[PathComponent]TreeEntry{}
	onlyS = map[PathComponent]TreeEntry{}

	for c, e := range eTree {
		if se, ok := sTree[c]; ok && se == e {
			continue
		}
		onlyE[c] = e
	}
	for c, se := range sTree {
		if ee, ok := eTree[c]; ok && ee == se {
			continue
		}
		onlyS[c] = se
	}
	return onlyE, onlyS
}
