package output

import (
	"context"
	"fmt"
	"hash/crc32"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/geocine/folio/internal/errs"
	"github.com/geocine/folio/internal/location"
	"github.com/geocine/folio/internal/template"
)

const gitPrefix = "git+"

// GitURL is a file of a remote repository: git+https://host/repo.git/path/file.md#ref
type GitURL struct {
	Host string
	Ref  string
	Path string
}

// IsGitURL reports whether s references a file in a git repository
func IsGitURL(s string) bool {
	return strings.HasPrefix(s, gitPrefix)
}

// ParseGitURL splits a git URL into the repository, the ref and the file path
func ParseGitURL(s string) (GitURL, error) {
	if !IsGitURL(s) {
		return GitURL{}, fmt.Errorf("invalid git url %q", s)
	}
	u, err := url.Parse(strings.TrimPrefix(s, gitPrefix))
	if err != nil {
		return GitURL{}, fmt.Errorf("invalid git url %q: %w", s, err)
	}
	ref := u.Fragment
	u.Fragment = ""

	repo, file, ok := strings.Cut(u.Path, ".git")
	if !ok {
		return GitURL{}, fmt.Errorf("invalid git url %q: no repository", s)
	}
	u.Path = repo + ".git"
	return GitURL{
		Host: u.String(),
		Ref:  ref,
		Path: strings.TrimPrefix(file, "/"),
	}, nil
}

// RepoID identifies a checkout of host at ref
func RepoID(host, ref string) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE([]byte(host+"#"+ref))), 16)
}

// Git clones the repositories referenced by conrefs into a temporary folder
type Git struct {
	logger *zap.Logger
	tmpDir string
	cloned map[string]string
}

// NewGit creates an empty clone cache
func NewGit(logger *zap.Logger) *Git {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Git{logger: logger, cloned: map[string]string{}}
}

// Clone checks out host at ref once and returns the folder of the checkout
func (g *Git) Clone(ctx context.Context, host, ref string) (string, error) {
	id := RepoID(host, ref)
	if dir, ok := g.cloned[id]; ok {
		return dir, nil
	}
	if g.tmpDir == "" {
		dir, err := os.MkdirTemp("", "folio-git-")
		if err != nil {
			return "", fmt.Errorf("failed to create temporary folder: %w", err)
		}
		g.tmpDir = dir
	}

	dir := filepath.Join(g.tmpDir, id)
	g.logger.Info("Cloning repository", zap.String("url", host), zap.String("ref", ref))

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: host})
	if err != nil {
		return "", fmt.Errorf("failed to clone %s: %w", host, err)
	}
	if ref != "" {
		if err := checkout(repo, ref); err != nil {
			return "", fmt.Errorf("failed to checkout %s of %s: %w", ref, host, err)
		}
	}

	g.cloned[id] = dir
	return dir, nil
}

func checkout(repo *git.Repository, ref string) error {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		hash, err = repo.ResolveRevision(plumbing.Revision("origin/" + ref))
		if err != nil {
			return err
		}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true})
}

// Resolve clones the repository of a git URL and returns the file on disk
func (g *Git) Resolve(ctx context.Context, s string) (string, error) {
	u, err := ParseGitURL(s)
	if err != nil {
		return "", err
	}
	dir, err := g.Clone(ctx, u.Host, u.Ref)
	if err != nil {
		return "", err
	}
	return resolveOnDisk(dir, u.Path)
}

// Root returns the checkout a file on disk belongs to, or ""
func (g *Git) Root(file string) string {
	if g.tmpDir == "" || file == "" {
		return ""
	}
	for _, dir := range g.cloned {
		if rel, err := filepath.Rel(dir, file); err == nil && !strings.HasPrefix(rel, "..") {
			return dir
		}
	}
	return ""
}

// Close removes every checkout
func (g *Git) Close() error {
	if g.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(g.tmpDir)
	g.tmpDir = ""
	g.cloned = map[string]string{}
	return err
}

func resolveOnDisk(root, name string) (string, error) {
	rel, err := location.ResolveInRoot(".", name)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// conrefLoader loads the templates included by pages: files of the book, or of a git
// repository with a "git+" URL. Includes from a repository file resolve inside the repository.
type conrefLoader struct {
	book interface {
		ReadFile(name string) (string, error)
	}
	git *Git
}

func (l *conrefLoader) Load(ctx context.Context, from, name string) (template.Source, error) {
	if IsGitURL(name) {
		file, err := l.git.Resolve(ctx, name)
		if err != nil {
			return template.Source{}, errs.Parsing(name, "failed to fetch git file", err)
		}
		return readDisk(file)
	}

	if root := l.git.Root(from); root != "" {
		rel, err := filepath.Rel(root, filepath.Dir(from))
		if err != nil {
			return template.Source{}, err
		}
		file, err := resolveOnDisk(root, path.Join(filepath.ToSlash(rel), name))
		if err != nil {
			return template.Source{}, err
		}
		return readDisk(file)
	}

	href := location.ToAbsolute(name, path.Dir(from), "")
	content, err := l.book.ReadFile(href)
	if err != nil {
		return template.Source{}, err
	}
	return template.Source{Path: href, Content: content}, nil
}

func readDisk(file string) (template.Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return template.Source{}, errs.FileNotFound(file)
	}
	return template.Source{Path: file, Content: string(data)}, nil
}
