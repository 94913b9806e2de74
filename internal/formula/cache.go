package formula

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ParseCache memoizes Parse by formula text. Parsed trees are immutable,
// so a cached Expr can be shared by any number of cells; binding happens
// per cell on a copy.
type ParseCache struct {
	cache *lru.Cache[string, parseResult]
}

type parseResult struct {
	expr Expr
	err  error
}

// NewParseCache creates a cache holding up to size formulas.
func NewParseCache(size int) (*ParseCache, error) {
	c, err := lru.New[string, parseResult](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{cache: c}, nil
}

// Parse returns the cached parse of text, parsing on a miss.
// A nil cache parses directly.
func (p *ParseCache) Parse(text string) (Expr, error) {
	if p == nil {
		return Parse(text)
	}
	if r, ok := p.cache.Get(text); ok {
		return r.expr, r.err
	}
	e, err := Parse(text)
	p.cache.Add(text, parseResult{expr: e, err: err})
	return e, err
}

// Len reports the number of cached entries.
func (p *ParseCache) Len() int {
	if p == nil {
		return 0
	}
	return p.cache.Len()
}
