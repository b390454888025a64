package compile

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"time"

	"github.com/zjrosen/replus/internal/cachemanager"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/template"
)

// DefaultCacheTTL is how long an unused compiled type stays cached.
const DefaultCacheTTL = cachemanager.DefaultExpiration

// Fingerprint identifies a definition compiled with opts. Equal
// fingerprints compile to equal sources.
func Fingerprint(def template.Definition, opts Options) string {
	h := sha256.New()
	writeField(h, def.Type)
	for _, k := range def.FragmentKeys() {
		writeField(h, k)
		alts := def.Fragments[k]
		writeLen(h, len(alts))
		for _, alt := range alts {
			writeField(h, alt)
		}
	}
	writeLen(h, len(def.Patterns))
	for _, p := range def.Patterns {
		writeField(h, p)
	}
	writeField(h, opts.Flags)
	writeField(h, opts.WhitespaceNoise)
	writeLen(h, int(opts.MatchTimeout))
	return def.Type + ":" + hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	writeLen(h, len(s))
	h.Write([]byte(s))
}

func writeLen(h hash.Hash, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

// Compiler compiles types through a cache keyed by Fingerprint, so a
// reload only recompiles the types that changed.
type Compiler struct {
	opts  Options
	ttl   time.Duration
	cache *cachemanager.ReadThroughCache[string, *CompiledType, template.Definition]
}

// NewCompiler returns a compiler. A nil cache compiles every time.
func NewCompiler(opts Options, cache cachemanager.CacheManager[string, *CompiledType], ttl time.Duration) *Compiler {
	c := &Compiler{opts: opts, ttl: ttl}
	if ttl <= 0 {
		c.ttl = DefaultCacheTTL
	}
	c.cache = cachemanager.NewReadThroughCache(cache, c.compile, false)
	return c
}

// Options returns the options every type is compiled with.
func (c *Compiler) Options() Options {
	return c.opts
}

// Compile returns the compiled form of def.
func (c *Compiler) Compile(ctx context.Context, def template.Definition) (*CompiledType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.cache.GetWithRefresh(ctx, Fingerprint(def, c.opts), def, c.ttl)
}

func (c *Compiler) compile(_ context.Context, def template.Definition) (*CompiledType, error) {
	log.Debug(log.CatCompile, "compiling type", "type", def.Type, "patterns", len(def.Patterns))
	return CompileType(def, c.opts)
}
