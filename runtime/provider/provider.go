// Package provider discovers R scripts in a set of folders and keeps the
// parsed algorithms available by id.
//
// Parsed scripts are cached by the hash of their content and help file, so
// reloading a folder only parses files that changed.
package provider

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/internal/ctxlog"
	"github.com/opal-lang/rsx/runtime/parser"
)

// ScriptExtension marks files loaded as scripts. Matched case-insensitively.
const ScriptExtension = ".rsx"

// DefaultCacheSize bounds the number of parsed scripts kept in memory.
const DefaultCacheSize = 512

// Provider holds the algorithms found in Folders.
type Provider struct {
	Folders []string

	mu         sync.RWMutex
	algorithms map[string]*model.Algorithm
	cache      *lru.Cache[string, *model.Algorithm]
}

// New returns a provider for folders with a parse cache of cacheSize
// entries. A non-positive size selects DefaultCacheSize.
func New(folders []string, cacheSize int) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *model.Algorithm](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating script cache: %w", err)
	}
	return &Provider{
		Folders:    slices.Clone(folders),
		algorithms: make(map[string]*model.Algorithm),
		cache:      cache,
	}, nil
}

// Load rescans every folder and replaces the algorithm set. Missing
// folders are skipped. Scripts with diagnostics are kept, since they
// report why they cannot execute; unreadable files are logged and
// skipped. When two scripts share an id the first one found wins.
func (p *Provider) Load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	found := make(map[string]*model.Algorithm)

	for _, folder := range p.Folders {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == folder {
					return fs.SkipDir
				}
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() || !IsScript(path) {
				return nil
			}

			alg, err := p.parse(path)
			if err != nil {
				logger.Error("could not load R script", "path", path, "error", err)
				return nil
			}
			if strings.TrimSpace(alg.Name) == "" {
				return nil
			}
			if len(alg.Diagnostics) > 0 {
				logger.Warn("R script has errors", "path", path, "errors", alg.Error())
			}
			if prev, dup := found[alg.Name]; dup {
				logger.Warn("duplicate script id", "id", alg.Name, "path", path, "kept", prev.Source)
				return nil
			}
			found[alg.Name] = alg
			return nil
		})
		if err != nil {
			return fmt.Errorf("scanning %s: %w", folder, err)
		}
	}

	p.mu.Lock()
	p.algorithms = found
	p.mu.Unlock()
	logger.Debug("scripts loaded", "count", len(found), "folders", len(p.Folders))
	return nil
}

// IsScript reports whether path names a script file.
func IsScript(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ScriptExtension)
}

// parse returns the cached algorithm for path when neither the script nor
// its help file changed.
func (p *Provider) parse(path string) (*model.Algorithm, error) {
	key, err := contentKey(path)
	if err != nil {
		return nil, err
	}
	if alg, ok := p.cache.Get(key); ok {
		return alg, nil
	}
	tree, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, tree.Algorithm)
	return tree.Algorithm, nil
}

func contentKey(path string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(data)
	h.Write([]byte{0})
	if help, err := os.ReadFile(path + parser.HelpFileSuffix); err == nil {
		h.Write(help)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Algorithms returns the loaded algorithms sorted by id.
func (p *Provider) Algorithms() []*model.Algorithm {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*model.Algorithm, 0, len(p.algorithms))
	for _, alg := range p.algorithms {
		out = append(out, alg)
	}
	slices.SortFunc(out, func(a, b *model.Algorithm) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Algorithm returns the algorithm with the given id.
func (p *Provider) Algorithm(id string) (*model.Algorithm, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	alg, ok := p.algorithms[id]
	return alg, ok
}

// CacheLen reports the number of parsed scripts held in the cache.
func (p *Provider) CacheLen() int {
	return p.cache.Len()
}
