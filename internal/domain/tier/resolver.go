package tier

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

// DefaultPrimaryPrefixes lists the designations graded on the primary scale.
var DefaultPrimaryPrefixes = []string{
	"Iniciação",
	"Pré-Classe",
	"1ª Classe",
	"2ª Classe",
	"3ª Classe",
	"4ª Classe",
	"5ª Classe",
	"6ª Classe",
}

// DefaultSecondaryPrefixes lists designations known to be secondary. They
// resolve exactly like unknown labels but are not reported as fallbacks.
var DefaultSecondaryPrefixes = []string{
	"7ª Classe",
	"8ª Classe",
	"9ª Classe",
	"10ª Classe",
	"11ª Classe",
	"12ª Classe",
	"13ª Classe",
}

// Resolver maps a class designation to its tier.
type Resolver interface {
	Resolve(ctx context.Context, designation string) Tier
}

// Option applies a configuration option to the PrefixResolver.
type Option func(*PrefixResolver)

// WithPrimaryPrefixes replaces the primary prefix list.
func WithPrimaryPrefixes(prefixes []string) Option {
	return func(r *PrefixResolver) {
		if len(prefixes) > 0 {
			r.primary = normalizeAll(prefixes)
		}
	}
}

// WithSecondaryPrefixes replaces the list of recognized secondary prefixes.
func WithSecondaryPrefixes(prefixes []string) Option {
	return func(r *PrefixResolver) {
		if len(prefixes) > 0 {
			r.secondary = normalizeAll(prefixes)
		}
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l logger.Logger) Option {
	return func(r *PrefixResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// PrefixResolver matches normalized designations against prefix lists.
// It is safe for concurrent use.
type PrefixResolver struct {
	primary   []string
	secondary []string
	logger    logger.Logger
}

// NewPrefixResolver creates a resolver with the default prefix lists.
func NewPrefixResolver(opts ...Option) *PrefixResolver {
	r := &PrefixResolver{
		primary:   normalizeAll(DefaultPrimaryPrefixes),
		secondary: normalizeAll(DefaultSecondaryPrefixes),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tier for designation. Unrecognized designations resolve
// to Secondary; that fallback is logged and counted.
func (r *PrefixResolver) Resolve(ctx context.Context, designation string) Tier {
	t, recognized := r.Match(designation)
	if !recognized {
		r.logger.Warn(ctx, "unrecognized class designation; using secondary scale",
			logger.String("designation", designation))
		metrics.RecordTierFallback()
	}
	metrics.RecordTierResolution(t.String())
	return t
}

// Match is the side-effect free form of Resolve. The boolean reports whether
// the designation matched any known prefix.
func (r *PrefixResolver) Match(designation string) (Tier, bool) {
	label := Normalize(designation)
	if matchesAny(label, r.primary) {
		return Primary, true
	}
	return Secondary, matchesAny(label, r.secondary)
}

// Normalize prepares a designation for comparison: NFC composition, trimmed,
// inner whitespace collapsed to single spaces, case-folded.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// matchesAny reports whether label equals a prefix or continues it after a
// space or hyphen. "10ª classe" therefore does not match "1ª classe".
func matchesAny(label string, prefixes []string) bool {
	for _, p := range prefixes {
		if label == p || strings.HasPrefix(label, p+" ") || strings.HasPrefix(label, p+"-") {
			return true
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
