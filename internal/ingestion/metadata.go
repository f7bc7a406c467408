package ingestion

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// knownAct pairs the filename/URL keywords of a statute with its display title.
type knownAct struct {
	// keywords must all appear in the normalised source name.
	keywords []string
	// title is the citation title shown to users.
	title string
}

// knownActs lists the statutes in the Lawglance corpus. More specific
// entries come first so "bnss" is not swallowed by "bns".
var knownActs = []knownAct{
	{[]string{"constitution"}, "Constitution of India"},
	{[]string{"bnss"}, "Bharatiya Nagarik Suraksha Sanhita, 2023"},
	{[]string{"nagarik"}, "Bharatiya Nagarik Suraksha Sanhita, 2023"},
	{[]string{"bns"}, "Bharatiya Nyaya Sanhita, 2023"},
	{[]string{"nyaya"}, "Bharatiya Nyaya Sanhita, 2023"},
	{[]string{"bsa"}, "Bharatiya Sakshya Adhiniyam, 2023"},
	{[]string{"sakshya"}, "Bharatiya Sakshya Adhiniyam, 2023"},
	{[]string{"consumer"}, "Consumer Protection Act, 2019"},
	{[]string{"motor", "vehicle"}, "Motor Vehicles Act, 1988"},
	{[]string{"mva"}, "Motor Vehicles Act, 1988"},
	{[]string{"information", "technology"}, "Information Technology Act, 2000"},
	{[]string{"it", "act"}, "Information Technology Act, 2000"},
	{[]string{"posh"}, "The Sexual Harassment of Women at Workplace (Prevention, Prohibition and Redressal) Act, 2013"},
	{[]string{"sexual", "harassment"}, "The Sexual Harassment of Women at Workplace (Prevention, Prohibition and Redressal) Act, 2013"},
	{[]string{"pocso"}, "The Protection of Children from Sexual Offences Act, 2012"},
}

// tokenSplit splits source names on anything that is not a letter or digit.
var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// InferTitle returns the statute title for a file path or URL. Unknown
// sources get a title derived from the file name ("rti_act_2005.pdf" →
// "Rti Act 2005").
func InferTitle(source string) string {
	base := sourceBase(source)
	tokens := tokenSplit.Split(strings.ToLower(base), -1)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = true
		}
	}
	lowerBase := strings.ToLower(base)

	for _, act := range knownActs {
		if matchesAll(act.keywords, set, lowerBase) {
			return act.title
		}
	}
	return humanise(base)
}

// matchesAll reports whether every keyword is a token of the source name.
// Keywords of five letters or more may also match as substrings, so
// "constitutionofindia.pdf" still resolves.
func matchesAll(keywords []string, tokens map[string]bool, lower string) bool {
	for _, k := range keywords {
		if tokens[k] {
			continue
		}
		if len(k) >= 5 && strings.Contains(lower, k) {
			continue
		}
		return false
	}
	return true
}

// sourceBase returns the file name without extension for a path or URL.
func sourceBase(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		p = u.Path
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if base == "." || base == "/" {
		if u, err := url.Parse(source); err == nil && u.Host != "" {
			return u.Host
		}
		return source
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// humanise turns "rti_act-2005" into "Rti Act 2005".
func humanise(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' || r == '.' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return s
	}
	return strings.Join(words, " ")
}

// sectionPattern finds the first statute section or constitutional article
// heading in a chunk, e.g. "Section 103", "Sec. 66A", "Article 21".
var sectionPattern = regexp.MustCompile(`(?i)\b(section|sec\.|article|art\.)\s*(\d+[a-z]?)\b`)

// DetectSection returns a normalised section label such as "Section 66A" or
// "Article 21", or "" when the chunk has none.
func DetectSection(text string) string {
	m := sectionPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	kind := "Section"
	if strings.HasPrefix(strings.ToLower(m[1]), "art") {
		kind = "Article"
	}
	return kind + " " + strings.ToUpper(m[2])
}
