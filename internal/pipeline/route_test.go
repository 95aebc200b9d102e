package pipeline

import "testing"

func testNormalizer() *Normalizer {
	return NewNormalizer(map[string]string{
		"GROSS-GERAU": "Groß-Gerau",
		"KOLN":        "Köln",
		"KÖLN":        "Köln",
		"WESEL":       "Wesel",
	}, []CompanyAlias{
		{Substring: "NAGEL", Label: "Na"},
		{Substring: "EDEKA", Label: "Edeka"},
	})
}

func TestCityLabel(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"aliased city", "NAGEL LOGISTIK, Industriestr. 5, D 64521 GROSS-GERAU", "Groß-Gerau"},
		{"title-cased unknown city", "FIRMA X, Weg 1, D 12345 LADENBURG", "Ladenburg"},
		{"bare fallback token", "KÖLN", "Köln"},
		{"bare unknown token", "RAUNHEIM", "Raunheim"},
		{"company alias without postal code", "EDEKA Zentrallager Süd", "Edeka"},
		{"nothing matches", "irgendein Freitext", ""},
		{"empty address", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.CityLabel(tt.address); got != tt.want {
				t.Errorf("CityLabel(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}

func TestCityLabel_LongestAliasWins(t *testing.T) {
	n := NewNormalizer(map[string]string{
		"ESSEN":         "Essen",
		"OBERESSENDORF": "Oberessendorf",
	}, nil)

	tests := []struct {
		token string
		want  string
	}{
		{"ESSEN", "Essen"},
		// Contains ESSEN too; the more specific key must win.
		{"OBERESSENDORF", "Oberessendorf"},
	}
	for _, tt := range tests {
		if got := n.CityLabel(tt.token); got != tt.want {
			t.Errorf("CityLabel(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestFormatRoute(t *testing.T) {
	n := testNormalizer()

	gerau := "NAGEL LOGISTIK, Industriestr. 5, D 64521 GROSS-GERAU"
	wesel := "EDEKA ZENTRALLAGER, Lagerstr. 2, D 46485 WESEL"
	koln := "LAGER KOELN, Hafenstr. 9, D 50667 KOLN"

	tests := []struct {
		name      string
		loading   []string
		unloading []string
		tour      string
		want      string
	}{
		{"both empty no tour", nil, nil, "", ""},
		{"both empty with tour", nil, nil, "Sondertour 7", "Sondertour 7"},
		{"one to one", []string{gerau}, []string{wesel}, "", "Groß-Gerau-Wesel"},
		{"one to many", []string{gerau}, []string{wesel, koln}, "", "Groß-Gerau-Wesel+Köln"},
		{"many to many", []string{gerau, koln}, []string{wesel}, "", "Groß-Gerau-Köln-Wesel"},
		{"only origins", []string{gerau, koln}, nil, "", "Groß-Gerau-Köln"},
		{"only destinations", nil, []string{wesel}, "", "Wesel"},
		{"duplicates collapse", []string{gerau, gerau}, []string{wesel, wesel}, "", "Groß-Gerau-Wesel"},
		{"unlabelable addresses ignored", []string{"Freitext ohne Muster"}, []string{wesel}, "", "Wesel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.FormatRoute(tt.loading, tt.unloading, tt.tour); got != tt.want {
				t.Errorf("FormatRoute(%v, %v, %q) = %q, want %q", tt.loading, tt.unloading, tt.tour, got, tt.want)
			}
		})
	}
}
