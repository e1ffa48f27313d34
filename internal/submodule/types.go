// Package submodule implements the recursive submodule-expansion
// validator: given a commit in a "large" monorepo that is supposed to
// carry the expanded working copies of one or more "small" sub-repos,
// confirm that every declared submodule's metadata pointer and
// expanded directory tree are mutually consistent (spec §3-4).
//
// The package never touches storage directly; every blob, tree, and
// cross-repo lookup goes through the Blobstore/TreeStore/DerivedData/
// SubRepo collaborator interfaces in store.go, mirroring how gitaly's
// RPC handlers treat the on-disk repository as an injected collaborator
// rather than a package-level global.
package submodule

import (
	"fmt"
	"strings"
)

// GitHash is a git object id: 20 raw bytes, 40 lowercase hex digits on
// the wire. It is a separate type from wireproto.NodeHash: the two
// parsers live in unrelated packages serving unrelated protocols, and
// nothing in this package has a legitimate reason to import wireproto.
type GitHash [20]byte

// ParseGitHash decodes exactly 40 lowercase hex digits.
func ParseGitHash(b []byte) (GitHash, error) {
	var h GitHash
	if len(b) != 40 {
		return h, fmt.Errorf("submodule: git hash must be 40 hex characters, got %d bytes", len(b))
	}
	for i := 0; i < 20; i++ {
		hi, ok := fromHexDigit(b[2*i])
		if !ok {
			return h, fmt.Errorf("submodule: invalid hex digit %q in git hash", b[2*i])
		}
		lo, ok := fromHexDigit(b[2*i+1])
		if !ok {
			return h, fmt.Errorf("submodule: invalid hex digit %q in git hash", b[2*i+1])
		}
		h[i] = hi<<4 | lo
	}
	return h, nil
}

func fromHexDigit(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}

func (h GitHash) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 40)
	for i, b := range h {
		out[2*i] = hexDigits[b>>4]
		out[2*i+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// PathComponent is one non-empty path segment; "." and ".." are not
// valid components (spec §3).
type PathComponent string

// Path is an ordered, forward-slash-joined sequence of PathComponents.
// The zero value is the repository root. Path is backed by a plain
// string so it is comparable and usable directly as a map key -- the
// tree-diff engine and the deletion-consistency check both build sets
// and maps of Path.
type Path string

// RootPath is the empty path: the root of a tree.
const RootPath Path = ""

// NewPath joins components into a Path, rejecting empty, ".", and ".."
// components (spec §3).
func NewPath(components ...PathComponent) (Path, error) {
	for _, c := range components {
		if err := validateComponent(c); err != nil {
			return "", err
		}
	}
	strs := make([]string, len(components))
	for i, c := range components {
		strs[i] = string(c)
	}
	return Path(strings.Join(strs, "/")), nil
}

// ParsePath splits a forward-slash-delimited string into a Path,
// validating every component. An empty string is the root path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return RootPath, nil
	}
	parts := strings.Split(s, "/")
	components := make([]PathComponent, len(parts))
	for i, p := range parts {
		components[i] = PathComponent(p)
	}
	return NewPath(components...)
}

func validateComponent(c PathComponent) error {
	switch c {
	case "":
		return fmt.Errorf("submodule: empty path component")
	case ".", "..":
		return fmt.Errorf("submodule: path component %q is not allowed", c)
	}
	return nil
}

// Components splits the path back into its PathComponents. The root
// path has zero components.
func (p Path) Components() []PathComponent {
	if p == RootPath {
		return nil
	}
	parts := strings.Split(string(p), "/")
	out := make([]PathComponent, len(parts))
	for i, s := range parts {
		out[i] = PathComponent(s)
	}
	return out
}

// String renders the path using forward-slash separators.
func (p Path) String() string {
	return string(p)
}

// Join appends a single component, returning a new Path.
func (p Path) Join(c PathComponent) Path {
	if p == RootPath {
		return Path(c)
	}
	return Path(string(p) + "/" + string(c))
}

// Leaf returns the final component and whether the path is non-root.
func (p Path) Leaf() (PathComponent, bool) {
	components := p.Components()
	if len(components) == 0 {
		return "", false
	}
	return components[len(components)-1], true
}

// Parent returns the path with its final component removed, and
// whether p was non-root to begin with.
func (p Path) Parent() (Path, bool) {
	components := p.Components()
	if len(components) == 0 {
		return RootPath, false
	}
	parent, err := NewPath(components[:len(components)-1]...)
	if err != nil {
		// unreachable: components were already validated when p was built.
		return RootPath, false
	}
	return parent, true
}

// HasPrefix reports whether p is prefix itself, or nested beneath it
// (component-wise, not a raw string prefix -- "ab" must not match
// "a"). Used by the expansion-changed check (§4.9 step 2), which
// counts a change to the expansion root itself as touching it.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix == RootPath {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+"/")
}

// StripPrefix implements spec §4.10: if prefix is a strict,
// component-wise prefix of p, return the remainder beneath it;
// otherwise ok is false. Equality does not count as a strict prefix.
func (p Path) StripPrefix(prefix Path) (Path, bool) {
	if prefix == RootPath {
		if p == RootPath {
			return RootPath, false
		}
		return p, true
	}
	if p == prefix {
		return RootPath, false
	}
	rest := strings.TrimPrefix(string(p), string(prefix)+"/")
	if rest == string(p) {
		return RootPath, false
	}
	return Path(rest), true
}

// FileType classifies a non-directory TreeEntry (spec §3).
type FileType int

const (
	Regular FileType = iota
	Executable
	Symlink
	GitSubmodule
)

func (t FileType) String() string {
	switch t {
	case Regular:
		return "regular"
	case Executable:
		return "executable"
	case Symlink:
		return "symlink"
	case GitSubmodule:
		return "gitlink"
	default:
		return "unknown"
	}
}

// TreeID identifies a directory's content within a TreeStore.
type TreeID string

// BlobID identifies a file's content within a Blobstore.
type BlobID string

// EntryKind discriminates TreeEntry's two cases.
type EntryKind int

const (
	EntryDir EntryKind = iota
	EntryFile
)

// TreeEntry is Dir(TreeID) or File(BlobID, FileType) (spec §3). It is
// a plain comparable struct -- not an interface -- so sets of
// TreeEntry can be built with ordinary Go maps, which the tree-diff
// engine's set-difference step (§4.8 step 1-2) relies on.
type TreeEntry struct {
	Kind     EntryKind
	TreeID   TreeID
	BlobID   BlobID
	FileType FileType
}

// DirEntry builds a directory TreeEntry.
func DirEntry(id TreeID) TreeEntry {
	return TreeEntry{Kind: EntryDir, TreeID: id}
}

// FileEntry builds a file TreeEntry.
func FileEntry(id BlobID, ft FileType) TreeEntry {
	return TreeEntry{Kind: EntryFile, BlobID: id, FileType: ft}
}

func (e TreeEntry) IsDir() bool  { return e.Kind == EntryDir }
func (e TreeEntry) IsFile() bool { return e.Kind == EntryFile }

// Tree maps a directory's immediate children by name (spec §3).
type Tree map[PathComponent]TreeEntry

// ChangeKind discriminates FileChange's four cases (spec §3).
type ChangeKind int

const (
	// Tracked is an ordinary content change recorded in history.
	Tracked ChangeKind = iota
	// Untracked is a content change that does not participate in
	// blame/history the way Tracked changes do (mirrors Mononoke's
	// distinction between "tracked" and "untracked" file changes).
	Untracked
	// Deletion removes a previously tracked path.
	Deletion
	// UntrackedDeletion removes a previously untracked path.
	UntrackedDeletion
)

// FileChange records what happened to one path in one commit.
type FileChange struct {
	Kind      ChangeKind
	ContentID BlobID
}

// IsDeletion reports whether the change removes the path.
func (fc FileChange) IsDeletion() bool {
	return fc.Kind == Deletion || fc.Kind == UntrackedDeletion
}

// CommitID identifies a commit within a repository.
type CommitID string

// Commit is the subset of commit metadata the validator needs: its
// own id, its parents, and the set of paths it changes (spec §3).
type Commit struct {
	ID          CommitID
	Parents     []CommitID
	FileChanges map[Path]FileChange
}

// SubmoduleDeps maps a submodule's path in the small repo to the
// SubRepo collaborator used to load that sub-repo (spec §3).
type SubmoduleDeps map[Path]SubRepo

// StripPrefix filters deps to the subset whose keys are strictly
// nested beneath prefix, rewriting each surviving key to its path
// relative to prefix (spec §4.10, used to build the adjusted
// SubmoduleDeps handed to a recursive tree-diff or validator call).
func (deps SubmoduleDeps) StripPrefix(prefix Path) SubmoduleDeps {
	out := make(SubmoduleDeps)
	for p, handle := range deps {
		if rest, ok := p.StripPrefix(prefix); ok {
			out[rest] = handle
		}
	}
	return out
}

// Mover translates a path in the small repo to its path in the large
// repo. It must be pure and must not perform I/O (spec §5, §9); a
// false second return means the small-repo path has no large-repo
// counterpart and any use of it is fatal (spec §4.9 step 1).
type Mover func(Path) (Path, bool)

// ExpansionContext bundles everything the validator needs beyond a
// single commit: which large repo it validates against, the metadata
// basename prefix, the declared submodule dependencies, and the mover
// translating small-repo paths into the large repo (spec §3).
type ExpansionContext struct {
	LargeRepo              LargeRepo
	MetadataBasenamePrefix string
	SubmoduleDeps          SubmoduleDeps
	Mover                  Mover
}

// metadataBasename builds the metadata file's basename for a submodule
// directory component named leaf: ".<prefix>-<leaf>", a dotfile named
// per spec §3's "<prefix>-<last component of P>" rule.
func metadataBasename(prefix string, leaf PathComponent) PathComponent {
	return PathComponent(fmt.Sprintf(".%s-%s", prefix, leaf))
}

// MetadataPath derives the metadata file's path for a submodule at
// large-repo path expansionPath: a sibling of expansionPath, named via
// metadataBasename (spec §3).
func MetadataPath(prefix string, expansionPath Path) (Path, error) {
	leaf, ok := expansionPath.Leaf()
	if !ok {
		return "", fmt.Errorf("submodule: cannot derive metadata path for the root")
	}
	parent, _ := expansionPath.Parent()
	return parent.Join(metadataBasename(prefix, leaf)), nil
}
