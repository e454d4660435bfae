package drop

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dropkit/dropfetch/pkg/logging"
)

// PathPredicate decides whether an item path is kept.
type PathPredicate func(path string) bool

// FilterOptions controls how filter patterns are matched.
type FilterOptions struct {
	IgnoreCase bool
}

// CompileFilters compiles glob patterns into path predicates. The '/'
// separator is significant, so "*.txt" does not cross directories while
// "**/*.txt" does.
func CompileFilters(patterns []string, opts FilterOptions) ([]PathPredicate, error) {
	predicates := make([]PathPredicate, 0, len(patterns))
	for _, pattern := range patterns {
		p := pattern
		if opts.IgnoreCase {
			p = strings.ToLower(p)
		}

		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("drop: invalid filter pattern %q: %w", pattern, err)
		}

		if opts.IgnoreCase {
			predicates = append(predicates, func(path string) bool {
				return g.Match(strings.ToLower(path))
			})
		} else {
			predicates = append(predicates, g.Match)
		}
	}

	return predicates, nil
}

// filterItems keeps the items matched by any predicate (OR semantics). With
// no predicates supplied, every item passes. Each exclusion is logged for
// auditability.
func filterItems(items []ArtifactItem, predicates []PathPredicate, log logging.Interface) []ArtifactItem {
	if len(predicates) == 0 {
		return items
	}

	kept := make([]ArtifactItem, 0, len(items))
	for _, item := range items {
		if matchesAny(item.Path, predicates) {
			kept = append(kept, item)
		} else {
			log.WithField("path", item.Path).Info("item excluded by path filter")
		}
	}

	return kept
}

func matchesAny(path string, predicates []PathPredicate) bool {
	for _, match := range predicates {
		if match(path) {
			return true
		}
	}

	return false
}
