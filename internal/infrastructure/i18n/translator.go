// Package i18n provides domain-scoped message catalogs for document rendering.
//
// Catalogs are YAML files named <domain>.<locale>.yaml. Nested keys are
// flattened with dots, so
//
//	invoice:
//	  total: Total
//
// is looked up as "invoice.total".
package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DomainTypePDF is the domain stack used while rendering documents
const DomainTypePDF = "pdf"

// DefaultDomain is searched when the current domain has no message
const DefaultDomain = "messages"

// domainSeparator splits an explicit domain from a message id, as in "invoice::total"
const domainSeparator = "::"

// Translator resolves message ids against YAML catalogs.
// The domain stack belongs to one translator; use Fork to give each render
// pass its own stack over the same catalogs.
type Translator struct {
	fsys     fs.FS
	locale   language.Tag
	fallback language.Tag
	logger   *zap.Logger
	catalogs *catalogCache

	mu      sync.Mutex
	domains map[string][]string
}

type catalogCache struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

// Option configures a Translator
type Option func(*Translator)

// WithFallbackLocale sets the locale tried after the requested one
func WithFallbackLocale(tag language.Tag) Option {
	return func(t *Translator) {
		t.fallback = tag
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a translator reading catalogs from fsys. A nil fsys yields a
// translator that returns message ids unchanged.
func New(fsys fs.FS, locale string, opts ...Option) (*Translator, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}

	t := &Translator{
		fsys:     fsys,
		locale:   tag,
		fallback: language.English,
		logger:   zap.NewNop(),
		catalogs: &catalogCache{entries: make(map[string]map[string]string)},
		domains:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fork returns a translator sharing the catalogs of t with a copy of its
// domain stacks
func (t *Translator) Fork() *Translator {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	domains := make(map[string][]string, len(t.domains))
	for domainType, stack := range t.domains {
		domains[domainType] = append([]string(nil), stack...)
	}

	return &Translator{
		fsys:     t.fsys,
		locale:   t.locale,
		fallback: t.fallback,
		logger:   t.logger,
		catalogs: t.catalogs,
		domains:  domains,
	}
}

// NewFromDir creates a translator over the catalogs in dir. An empty dir
// disables translation.
func NewFromDir(dir, locale string, opts ...Option) (*Translator, error) {
	if dir == "" {
		return New(nil, locale, opts...)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("translations directory: %w", err)
	}
	return New(os.DirFS(dir), locale, opts...)
}

// Locale returns the translator locale
func (t *Translator) Locale() language.Tag {
	return t.locale
}

// SetDomain pushes domain on the stack of domainType
func (t *Translator) SetDomain(domainType, domain string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.domains[domainType] = append(t.domains[domainType], domain)
}

// RevertDomain pops the last domain pushed on the stack of domainType
func (t *Translator) RevertDomain(domainType string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.domains[domainType]
	if len(stack) > 0 {
		t.domains[domainType] = stack[:len(stack)-1]
	}
}

// Domain returns the current domain of domainType, or "" if none is set
func (t *Translator) Domain(domainType string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.domains[domainType]
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

// Trans translates id in the current pdf domain, then in the default domain.
// Arguments replace their keys verbatim in the message, e.g. ":pageNum".
// Unknown ids are returned unchanged.
func (t *Translator) Trans(id string, args map[string]any) string {
	if t == nil {
		return replaceArgs(id, args)
	}

	domains := []string{t.Domain(DomainTypePDF), DefaultDomain}
	key := id
	if explicit, rest, found := strings.Cut(id, domainSeparator); found {
		domains = []string{explicit}
		key = rest
	}

	message, ok := t.lookup(domains, key)
	if !ok {
		message = key
	}
	return replaceArgs(message, args)
}

func (t *Translator) lookup(domains []string, key string) (string, bool) {
	if t == nil || t.fsys == nil {
		return "", false
	}

	t.catalogs.mu.Lock()
	defer t.catalogs.mu.Unlock()

	for _, domain := range domains {
		if domain == "" {
			continue
		}
		for _, locale := range t.candidateLocales() {
			catalog := t.catalog(domain, locale)
			if message, ok := catalog[key]; ok {
				return message, true
			}
		}
	}
	return "", false
}

// candidateLocales returns the full locale, its base language and the fallback
func (t *Translator) candidateLocales() []string {
	candidates := []string{t.locale.String()}
	if base, confidence := t.locale.Base(); confidence != language.No {
		candidates = append(candidates, base.String())
	}
	candidates = append(candidates, t.fallback.String())

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

// catalog loads and caches one catalog; callers hold t.catalogs.mu
func (t *Translator) catalog(domain, locale string) map[string]string {
	name := domain + "." + locale + ".yaml"
	if catalog, ok := t.catalogs.entries[name]; ok {
		return catalog
	}

	catalog := map[string]string{}
	content, err := fs.ReadFile(t.fsys, name)
	switch {
	case err == nil:
		var raw map[string]any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			t.logger.Warn("Invalid translation catalog", zap.String("catalog", name), zap.Error(err))
		} else {
			flatten("", raw, catalog)
		}
	case !errors.Is(err, fs.ErrNotExist):
		t.logger.Warn("Failed to read translation catalog", zap.String("catalog", name), zap.Error(err))
	}

	t.catalogs.entries[name] = catalog
	return catalog
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for key, value := range in {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(key, v, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}

// replaceArgs substitutes args in message. Longer keys are replaced first so
// ":page" cannot clobber ":pageNum".
func replaceArgs(message string, args map[string]any) string {
	if len(args) == 0 {
		return message
	}

	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	pairs := make([]string, 0, len(args)*2)
	for _, key := range keys {
		pairs = append(pairs, key, fmt.Sprint(args[key]))
	}
	return strings.NewReplacer(pairs...).Replace(message)
}
