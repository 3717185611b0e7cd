package printing

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates
var bundledTemplates embed.FS

// Bundled partials used by the page primitives
const (
	SpanTemplate      = "pdf/partials/span.html"
	PageTitleTemplate = "pdf/partials/page-title.html"
)

// TemplateEngine renders named templates into cell markup.
// Templates are looked up in the loader file systems in order; the bundled
// partials are always searched last, so a project can override them.
type TemplateEngine struct {
	funcMap    template.FuncMap
	loaders    []fs.FS
	currency   string
	dateLayout string
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithTemplateDir adds a directory to the template search path
func WithTemplateDir(dir string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if dir != "" {
			e.loaders = append(e.loaders, os.DirFS(dir))
		}
	}
}

// WithTemplateFS adds a file system to the template search path
func WithTemplateFS(fsys fs.FS) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if fsys != nil {
			e.loaders = append(e.loaders, fsys)
		}
	}
}

// WithCurrencySymbol sets the symbol formatMoney prefixes
func WithCurrencySymbol(symbol string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.currency = symbol
	}
}

// WithDateLayout sets the layout formatDate uses
func WithDateLayout(layout string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.dateLayout = layout
	}
}

// WithTemplateLogger sets the logger
func WithTemplateLogger(logger *zap.Logger) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		dateLayout: "2006-01-02",
		logger:     zap.NewNop(),
		cache:      make(map[string]*template.Template),
	}

	for _, opt := range opts {
		opt(e)
	}

	partials, err := fs.Sub(bundledTemplates, "templates")
	if err == nil {
		e.loaders = append(e.loaders, partials)
	}

	e.funcMap = template.FuncMap{
		// Replaced per render with the document translator
		"trans": func(id string, _ ...map[string]any) string { return id },

		"formatMoney":    e.formatMoney,
		"formatMoneyRaw": formatMoneyRaw,
		"formatDecimal":  formatDecimal,
		"formatDate":     e.formatDate,

		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    titleCase,
		"trim":     strings.TrimSpace,
		"truncate": truncate,
		"join":     strings.Join,

		"add":      add,
		"mul":      mul,
		"sumField": sumField,

		"default":  defaultFunc,
		"dict":     dict,
		"safeHTML": safeHTML,
	}

	return e
}

// Render executes the named template with vars. funcs replaces functions of the
// base function map for this render only; unknown names are rejected.
func (e *TemplateEngine) Render(name string, vars map[string]any, funcs template.FuncMap) (string, error) {
	base, err := e.lookup(name)
	if err != nil {
		return "", err
	}

	tmpl, err := base.Clone()
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidTemplate, "failed to clone template "+name, err)
	}
	if len(funcs) > 0 {
		for fn := range funcs {
			if _, ok := e.funcMap[fn]; !ok {
				return "", NewRenderError(ErrCodeInvalidTemplate, "unknown template function "+fn, nil)
			}
		}
		tmpl = tmpl.Funcs(funcs)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template "+name, err)
	}
	return buf.String(), nil
}

// Exists reports whether name resolves in any loader
func (e *TemplateEngine) Exists(name string) bool {
	_, err := e.lookup(name)
	return err == nil
}

// FuncMap returns a copy of the template function map
func (e *TemplateEngine) FuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

func (e *TemplateEngine) lookup(name string) (*template.Template, error) {
	name = strings.TrimPrefix(name, "/")

	e.mu.RLock()
	tmpl, ok := e.cache[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := e.load(name)
	if err != nil {
		return nil, err
	}

	tmpl, err = template.New(name).Funcs(e.funcMap).Parse(string(content))
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidTemplate, "failed to parse template "+name, err)
	}

	e.mu.Lock()
	e.cache[name] = tmpl
	e.mu.Unlock()

	e.logger.Debug("Template loaded", zap.String("template", name))
	return tmpl, nil
}

func (e *TemplateEngine) load(name string) ([]byte, error) {
	for _, loader := range e.loaders {
		content, err := fs.ReadFile(loader, name)
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, NewRenderError(ErrCodeInvalidTemplate, "failed to read template "+name, err)
		}
	}
	return nil, NewRenderError(ErrCodeTemplateNotFound, "template "+name+" not found",
		fmt.Errorf("%w: %s", ErrTemplateNotFound, name))
}

// =============================================================================
// Template Functions
// =============================================================================

// formatMoney formats a decimal value with the configured currency symbol
// Example: 1234.56 -> "$1,234.56"
func (e *TemplateEngine) formatMoney(v any) string {
	d := toDecimal(v)
	if d.IsNegative() {
		return "-" + e.currency + formatMoneyRaw(d.Abs())
	}
	return e.currency + formatMoneyRaw(d)
}

// formatMoneyRaw formats a decimal value with thousand separators and two places
// Example: 1234.56 -> "1,234.56"
func formatMoneyRaw(v any) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + result.String() + "." + decPart
}

func formatDecimal(v any, precision int) string {
	return toDecimal(v).StringFixed(int32(precision))
}

func (e *TemplateEngine) formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format(e.dateLayout)
}

// titleCase converts string to title case using proper Unicode handling
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// truncate shortens s to max runes, ending with "..."
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func add(a, b any) decimal.Decimal {
	return toDecimal(a).Add(toDecimal(b))
}

func mul(a, b any) decimal.Decimal {
	return toDecimal(a).Mul(toDecimal(b))
}

// sumField sums a field from a slice of structs or maps
// Usage in template: {{ sumField .lines "Amount" }}
func sumField(slice any, field string) decimal.Decimal {
	total := decimal.Zero
	v := reflect.ValueOf(slice)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return total
	}

	for i := range v.Len() {
		item := reflect.Indirect(v.Index(i))
		switch item.Kind() {
		case reflect.Struct:
			if f := item.FieldByName(field); f.IsValid() && f.CanInterface() {
				total = total.Add(toDecimal(f.Interface()))
			} else if m := v.Index(i).MethodByName(field); m.IsValid() && m.Type().NumIn() == 0 {
				total = total.Add(toDecimal(m.Call(nil)[0].Interface()))
			}
		case reflect.Map:
			if f := item.MapIndex(reflect.ValueOf(field)); f.IsValid() {
				total = total.Add(toDecimal(f.Interface()))
			}
		}
	}
	return total
}

func defaultFunc(def, val any) any {
	if val == nil {
		return def
	}
	if s, ok := val.(string); ok && s == "" {
		return def
	}
	return val
}

// dict creates a map from key-value pairs
func dict(pairs ...any) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			m[key] = pairs[i+1]
		}
	}
	return m
}

// safeHTML marks a string as safe HTML, bypassing automatic escaping.
// SECURITY: Only use with trusted, non-user-generated content.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

// toDecimal converts various types to decimal.Decimal
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// toTime converts various types to time.Time
func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}
