// Package mapper translates between local document paths and remote page
// names, and discovers the pairs a sync run has to consider.
//
// Mapping resolution for a local path:
//  1. exclude globs are checked first; a match means "no mapping"
//  2. ordered rules are tried, the first matching pattern wins
//  3. the rule's namespace template is expanded ({parent}, {stem}, {path})
//  4. per-filename name rules may override the page name
//  5. with no matching rule the flat name destination/stem is used
//
// Patterns use shell-style fnmatch semantics on the whole relative path:
// "*" and "?" also match "/", so "*.md" matches every document and
// "drafts/*" covers nested drafts. "**" is just two stars. Braces and
// backslashes are literal.
package mapper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/klauern/docsync/internal/model"
)

// IgnoreFileName is read from the source root when present and uses
// gitignore syntax.
const IgnoreFileName = ".docsyncignore"

const docExt = ".md"

// NameRule overrides the page name for files whose name matches Match.
type NameRule struct {
	Match string `yaml:"match" toml:"match"`
	Name  string `yaml:"name" toml:"name"`
}

// Rule maps local files matching Pattern into a remote namespace.
type Rule struct {
	Pattern   string     `yaml:"pattern" toml:"pattern"`
	Namespace string     `yaml:"namespace" toml:"namespace"`
	NameRules []NameRule `yaml:"name_rules,omitempty" toml:"name_rules,omitempty"`
}

// Options configures a Mapper.
type Options struct {
	// Destination is the remote name prefix, e.g. "Docs".
	Destination string
	// Rules are evaluated in order.
	Rules []Rule
	// Exclude holds globs for local paths that are never synced.
	Exclude []string
}

// Mapper is a pure path translator built from a profile.
type Mapper struct {
	destination string
	rules       []Rule
	exclude     []string
}

// New validates the patterns in opts and returns a Mapper.
func New(opts Options) (*Mapper, error) {
	for _, r := range opts.Rules {
		if !validPattern(r.Pattern) {
			return nil, fmt.Errorf("invalid mapping pattern: %q", r.Pattern)
		}
		for _, nr := range r.NameRules {
			if !validPattern(nr.Match) {
				return nil, fmt.Errorf("invalid name rule pattern: %q", nr.Match)
			}
		}
	}
	for _, ex := range opts.Exclude {
		if !validPattern(ex) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", ex)
		}
	}

	return &Mapper{
		destination: strings.TrimRight(opts.Destination, "/"),
		rules:       opts.Rules,
		exclude:     opts.Exclude,
	}, nil
}

// Destination returns the remote name prefix.
func (m *Mapper) Destination() string {
	return m.destination
}

// LocalToRemote maps a slash-separated local path to a remote page name.
// ok is false when the path is excluded.
func (m *Mapper) LocalToRemote(localPath string) (string, bool) {
	if m.excluded(localPath) {
		return "", false
	}

	p := stripExt(localPath)
	for _, r := range m.rules {
		if !match(r.Pattern, localPath) {
			continue
		}
		namespace := resolveNamespace(r.Namespace, localPath)
		name := resolvePageName(localPath, r.NameRules)
		return cleanName(m.destination + "/" + namespace + "/" + name), true
	}

	return cleanName(m.destination + "/" + path.Base(p)), true
}

// RemoteToLocal guesses a local path for a remote page name by stripping
// the destination prefix. Several local paths can map to the same name, so
// the result is only a best guess.
func (m *Mapper) RemoteToLocal(name string) (string, bool) {
	var remainder string
	switch {
	case m.destination == "":
		remainder = name
	case strings.HasPrefix(name, m.destination+"/"):
		remainder = name[len(m.destination):]
	default:
		return "", false
	}

	remainder = strings.TrimLeft(remainder, "/")
	if remainder == "" {
		return "", false
	}
	return remainder + docExt, true
}

// DiscoverLocalFiles lists candidate documents under root as sorted,
// slash-separated relative paths. A missing root yields no files.
func (m *Mapper) DiscoverLocalFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	ignore, err := loadIgnoreFile(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), docExt) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if len(m.rules) > 0 && !m.matchesAnyRule(rel) {
			return nil
		}
		if m.excluded(rel) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// BuildPairs combines discovered local files with the remote listing.
// Remote names not claimed by any local file are reverse-mapped to a
// guessed local path. The result is deduplicated and sorted by local path.
func (m *Mapper) BuildPairs(root string, remoteNames []string) ([]model.SyncPair, error) {
	files, err := m.DiscoverLocalFiles(root)
	if err != nil {
		return nil, err
	}

	byLocal := make(map[string]string, len(files)+len(remoteNames))
	claimed := mapset.NewThreadUnsafeSet[string]()

	for _, f := range files {
		name, ok := m.LocalToRemote(f)
		if !ok {
			continue
		}
		byLocal[f] = name
		claimed.Add(name)
	}

	for _, name := range remoteNames {
		if claimed.Contains(name) {
			continue
		}
		local, ok := m.RemoteToLocal(name)
		if !ok {
			continue
		}
		if _, exists := byLocal[local]; exists {
			continue
		}
		byLocal[local] = name
		claimed.Add(name)
	}

	pairs := make([]model.SyncPair, 0, len(byLocal))
	for local, name := range byLocal {
		pairs = append(pairs, model.SyncPair{LocalPath: local, RemoteName: name})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].LocalPath < pairs[j].LocalPath
	})
	return pairs, nil
}

func (m *Mapper) excluded(localPath string) bool {
	for _, ex := range m.exclude {
		if match(ex, localPath) {
			return true
		}
	}
	return false
}

func (m *Mapper) matchesAnyRule(localPath string) bool {
	for _, r := range m.rules {
		if match(r.Pattern, localPath) {
			return true
		}
	}
	return false
}

func loadIgnoreFile(root string) (*gitignore.GitIgnore, error) {
	p := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	ig, err := gitignore.CompileIgnoreFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return ig, nil
}

// segmentSep stands in for "/" so doublestar never sees a separator and
// its wildcards cross directories.
const segmentSep = "\x00"

var (
	flattenPath    = strings.NewReplacer("/", segmentSep)
	flattenPattern = strings.NewReplacer("/", segmentSep, `\`, `\\`, "{", `\{`, "}", `\}`)
)

// match reports an fnmatch-style match; patterns are validated in New.
func match(pattern, name string) bool {
	ok, _ := doublestar.Match(flattenPattern.Replace(pattern), flattenPath.Replace(name))
	return ok
}

// validPattern rejects patterns with an unterminated character class.
func validPattern(pattern string) bool {
	return doublestar.ValidatePattern(flattenPattern.Replace(pattern))
}

func resolveNamespace(template, localPath string) string {
	parent := path.Base(path.Dir(localPath))
	if parent == "." || parent == "/" {
		parent = ""
	}
	base := path.Base(localPath)
	stem := stripExt(base)

	r := strings.NewReplacer(
		"{parent}", parent,
		"{stem}", stem,
		"{path}", stripExt(localPath),
	)
	return r.Replace(template)
}

func resolvePageName(localPath string, rules []NameRule) string {
	base := path.Base(localPath)
	for _, nr := range rules {
		if match(nr.Match, base) {
			return nr.Name
		}
	}
	return stripExt(base)
}

// stripExt removes a trailing .md; other extensions are kept.
func stripExt(p string) string {
	return strings.TrimSuffix(p, docExt)
}

// cleanName collapses repeated slashes and trims a trailing slash.
func cleanName(raw string) string {
	for strings.Contains(raw, "//") {
		raw = strings.ReplaceAll(raw, "//", "/")
	}
	return strings.TrimRight(raw, "/")
}
