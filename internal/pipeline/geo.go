package pipeline

import "sort"

// GeoResult is a best-effort location resolution. Lat/Lon stay nil when the
// lookup misses; resolution never blocks ingestion.
type GeoResult struct {
	Country string
	Region  string
	Lat     *float64
	Lon     *float64
}

type countrySpec struct {
	name    string
	region  string
	lat     float64
	lon     float64
	aliases []string
}

// A static centroid table keyed on normalized country names and aliases.
// Deliberately coarse: country-level labels only, no street geocoding.
var countryTable = []countrySpec{
	{"United States", "Americas", 39.8, -98.6, []string{"usa", "us", "america", "washington"}},
	{"Canada", "Americas", 56.1, -106.3, []string{"ottawa"}},
	{"Mexico", "Americas", 23.6, -102.6, nil},
	{"Brazil", "Americas", -14.2, -51.9, []string{"brasilia"}},
	{"Argentina", "Americas", -38.4, -63.6, []string{"buenos aires"}},
	{"Colombia", "Americas", 4.6, -74.3, nil},
	{"Venezuela", "Americas", 6.4, -66.6, []string{"caracas"}},
	{"Haiti", "Americas", 18.9, -72.7, nil},
	{"United Kingdom", "Europe", 55.4, -3.4, []string{"uk", "britain", "england", "london"}},
	{"France", "Europe", 46.2, 2.2, []string{"paris"}},
	{"Germany", "Europe", 51.2, 10.4, []string{"berlin"}},
	{"Italy", "Europe", 41.9, 12.6, []string{"rome"}},
	{"Spain", "Europe", 40.5, -3.7, []string{"madrid"}},
	{"Poland", "Europe", 51.9, 19.1, []string{"warsaw"}},
	{"Ukraine", "Europe", 48.4, 31.2, []string{"kyiv", "kiev"}},
	{"Russia", "Europe", 61.5, 105.3, []string{"moscow", "russian federation"}},
	{"Belarus", "Europe", 53.7, 27.9, []string{"minsk"}},
	{"Turkey", "Middle East", 38.9, 35.2, []string{"turkiye", "ankara", "istanbul"}},
	{"Greece", "Europe", 39.1, 21.8, []string{"athens"}},
	{"Netherlands", "Europe", 52.1, 5.3, []string{"amsterdam", "the hague"}},
	{"Sweden", "Europe", 60.1, 18.6, []string{"stockholm"}},
	{"Norway", "Europe", 60.5, 8.5, []string{"oslo"}},
	{"Israel", "Middle East", 31.0, 34.9, []string{"jerusalem", "tel aviv"}},
	{"Palestine", "Middle East", 31.9, 35.2, []string{"gaza", "west bank"}},
	{"Lebanon", "Middle East", 33.9, 35.9, []string{"beirut"}},
	{"Syria", "Middle East", 34.8, 39.0, []string{"damascus"}},
	{"Iraq", "Middle East", 33.2, 43.7, []string{"baghdad"}},
	{"Iran", "Middle East", 32.4, 53.7, []string{"tehran"}},
	{"Saudi Arabia", "Middle East", 23.9, 45.1, []string{"riyadh"}},
	{"Yemen", "Middle East", 15.6, 48.5, []string{"sanaa", "houthi"}},
	{"United Arab Emirates", "Middle East", 23.4, 53.8, []string{"uae", "dubai", "abu dhabi"}},
	{"Qatar", "Middle East", 25.3, 51.2, []string{"doha"}},
	{"Jordan", "Middle East", 30.6, 36.2, []string{"amman"}},
	{"Egypt", "Africa", 26.8, 30.8, []string{"cairo"}},
	{"Libya", "Africa", 26.3, 17.2, []string{"tripoli"}},
	{"Sudan", "Africa", 12.9, 30.2, []string{"khartoum"}},
	{"Ethiopia", "Africa", 9.1, 40.5, []string{"addis ababa"}},
	{"Somalia", "Africa", 5.2, 46.2, []string{"mogadishu"}},
	{"Kenya", "Africa", -0.0, 37.9, []string{"nairobi"}},
	{"Nigeria", "Africa", 9.1, 8.7, []string{"abuja", "lagos"}},
	{"Ghana", "Africa", 7.9, -1.0, []string{"accra"}},
	{"South Africa", "Africa", -30.6, 22.9, []string{"johannesburg", "pretoria", "cape town"}},
	{"Democratic Republic of the Congo", "Africa", -4.0, 21.8, []string{"drc", "congo", "kinshasa"}},
	{"Mali", "Africa", 17.6, -4.0, []string{"bamako"}},
	{"Niger", "Africa", 17.6, 8.1, []string{"niamey"}},
	{"Morocco", "Africa", 31.8, -7.1, []string{"rabat"}},
	{"China", "Asia", 35.9, 104.2, []string{"beijing", "shanghai"}},
	{"Japan", "Asia", 36.2, 138.3, []string{"tokyo"}},
	{"South Korea", "Asia", 35.9, 127.8, []string{"seoul", "republic of korea"}},
	{"North Korea", "Asia", 40.3, 127.5, []string{"pyongyang", "dprk"}},
	{"India", "Asia", 20.6, 79.0, []string{"new delhi", "delhi", "mumbai"}},
	{"Pakistan", "Asia", 30.4, 69.3, []string{"islamabad", "karachi"}},
	{"Afghanistan", "Asia", 33.9, 67.7, []string{"kabul", "taliban"}},
	{"Bangladesh", "Asia", 23.7, 90.4, []string{"dhaka"}},
	{"Myanmar", "Asia", 21.9, 95.9, []string{"burma", "yangon"}},
	{"Thailand", "Asia", 15.9, 101.0, []string{"bangkok"}},
	{"Vietnam", "Asia", 14.1, 108.3, []string{"hanoi"}},
	{"Philippines", "Asia", 12.9, 121.8, []string{"manila"}},
	{"Indonesia", "Asia", -0.8, 113.9, []string{"jakarta"}},
	{"Malaysia", "Asia", 4.2, 102.0, []string{"kuala lumpur"}},
	{"Taiwan", "Asia", 23.7, 121.0, []string{"taipei"}},
	{"Australia", "Oceania", -25.3, 133.8, []string{"canberra", "sydney"}},
	{"New Zealand", "Oceania", -40.9, 174.9, []string{"wellington"}},
}

// GeoResolver maps location text to a country/region/centroid using the
// static table. Safe for concurrent use after construction.
type GeoResolver struct {
	byName  map[string]*countrySpec
	aliases []aliasEntry
}

type aliasEntry struct {
	alias     string
	canonical string
}

// NewGeoResolver builds the lookup index. Longer aliases are tried first so
// "south korea" beats "korea"-style partial hits.
func NewGeoResolver() *GeoResolver {
	r := &GeoResolver{byName: make(map[string]*countrySpec, len(countryTable))}
	for i := range countryTable {
		spec := &countryTable[i]
		canonical := NormalizeText(spec.name)
		r.byName[canonical] = spec
		r.aliases = append(r.aliases, aliasEntry{alias: canonical, canonical: canonical})
		for _, alias := range spec.aliases {
			normalized := NormalizeText(alias)
			if normalized != "" {
				r.aliases = append(r.aliases, aliasEntry{alias: normalized, canonical: canonical})
			}
		}
	}
	sort.Slice(r.aliases, func(i, j int) bool {
		return len(r.aliases[i].alias) > len(r.aliases[j].alias)
	})
	return r
}

// Resolve prefers an explicit country label, then scans the free text for a
// known country or alias. Unresolvable input falls back to the given labels
// with nil coordinates.
func (r *GeoResolver) Resolve(country, region, text string) GeoResult {
	if direct := r.lookup(country); direct != nil {
		return *direct
	}
	if country != "" && NormalizeText(country) != "global" {
		return GeoResult{Country: country, Region: fallbackRegion(region)}
	}
	if detected := r.detect(text); detected != nil {
		return *detected
	}
	if country == "" {
		country = "Global"
	}
	return GeoResult{Country: country, Region: fallbackRegion(region)}
}

func (r *GeoResolver) lookup(country string) *GeoResult {
	normalized := NormalizeText(country)
	if normalized == "" || normalized == "global" || normalized == "unknown" {
		return nil
	}
	spec := r.byName[normalized]
	if spec == nil {
		for _, entry := range r.aliases {
			if entry.alias == normalized {
				spec = r.byName[entry.canonical]
				break
			}
		}
	}
	if spec == nil {
		return nil
	}
	return specResult(spec)
}

func (r *GeoResolver) detect(text string) *GeoResult {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}
	for _, entry := range r.aliases {
		if !containsTerm(normalized, entry.alias) {
			continue
		}
		if spec := r.byName[entry.canonical]; spec != nil {
			return specResult(spec)
		}
	}
	return nil
}

func specResult(spec *countrySpec) *GeoResult {
	lat, lon := spec.lat, spec.lon
	return &GeoResult{Country: spec.name, Region: spec.region, Lat: &lat, Lon: &lon}
}

func fallbackRegion(region string) string {
	if region == "" {
		return "Global"
	}
	return region
}
