package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rePostalCity = regexp.MustCompile(`D\s*\d{5}\s+([A-ZÄÖÜ][A-ZÄÖÜ\-]*)`)
	reBareCity   = regexp.MustCompile(`^[A-ZÄÖÜ][A-ZÄÖÜ\-]*$`)
)

// CompanyAlias maps a company-name substring to a short route label.
// Used only when an address carries no postal marker; order matters, the
// first hit wins.
type CompanyAlias struct {
	Substring string `yaml:"substring"`
	Label     string `yaml:"label"`
}

// Normalizer turns raw address strings into short city labels. The
// lookup tables are hand-authored configuration, not algorithm: they fix
// the canonical spelling (incl. diacritics) of cities the fleet actually
// serves, everything else is title-cased as-is.
type Normalizer struct {
	cityKeys  []string // longest first, so the most specific alias wins
	cities    map[string]string
	companies []CompanyAlias
	title     cases.Caser
}

// NewNormalizer builds a Normalizer from the alias tables. Both tables
// may be empty; city keys are matched as substrings of the uppercase
// city token, longest key first (ties break alphabetically for a
// deterministic order).
func NewNormalizer(cityAliases map[string]string, companyAliases []CompanyAlias) *Normalizer {
	keys := make([]string, 0, len(cityAliases))
	for k := range cityAliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Normalizer{
		cityKeys:  keys,
		cities:    cityAliases,
		companies: companyAliases,
		title:     cases.Title(language.German),
	}
}

// CityLabel extracts the city label for one raw address. A full address
// yields the city token after its postal code; a bare uppercase token
// (the parsers' fallback output) is treated as the city itself. Anything
// matching neither the postal pattern, the fallback shape nor a company
// alias yields the empty string; that is silent behavior of the report,
// not an error.
func (n *Normalizer) CityLabel(address string) string {
	address = strings.TrimSpace(address)
	if m := rePostalCity.FindStringSubmatch(address); m != nil {
		return n.cityToken(m[1])
	}
	if reBareCity.MatchString(address) {
		return n.cityToken(address)
	}

	upper := strings.ToUpper(address)
	for _, c := range n.companies {
		if strings.Contains(upper, c.Substring) {
			return c.Label
		}
	}
	return ""
}

func (n *Normalizer) cityToken(city string) string {
	for _, key := range n.cityKeys {
		if strings.Contains(city, key) {
			return n.cities[key]
		}
	}
	return n.title.String(strings.ToLower(city))
}

// FormatRoute renders the compact route string for a pair of address
// lists. Each list is mapped to city labels and deduplicated
// independently (first occurrence wins, empties dropped), then the
// precedence below applies — it is observable report behavior, not an
// implementation detail:
//
//  1. one origin, one destination      → "Origin-Destination"
//  2. one origin, many destinations    → "Origin-Dest1+Dest2+…"
//  3. both lists non-empty otherwise   → all labels joined by "-"
//  4. one list non-empty               → its labels joined by "-"
//  5. both empty                       → the free-text tour field, or ""
func (n *Normalizer) FormatRoute(loading, unloading []string, tour string) string {
	origins := n.uniqueLabels(loading)
	dests := n.uniqueLabels(unloading)

	switch {
	case len(origins) == 1 && len(dests) == 1:
		return origins[0] + "-" + dests[0]
	case len(origins) == 1 && len(dests) > 1:
		return origins[0] + "-" + strings.Join(dests, "+")
	case len(origins) > 0 && len(dests) > 0:
		return strings.Join(append(origins, dests...), "-")
	case len(origins) > 0:
		return strings.Join(origins, "-")
	case len(dests) > 0:
		return strings.Join(dests, "-")
	}
	return tour
}

func (n *Normalizer) uniqueLabels(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	var labels []string
	for _, a := range addresses {
		l := n.CityLabel(a)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}
