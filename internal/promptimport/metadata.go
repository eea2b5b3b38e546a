package promptimport

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Metadata is what a single segment reveals about itself.
type Metadata struct {
	Category      string   `json:"category"`
	Subcategory   *string  `json:"subcategory,omitempty"`
	Number        *int     `json:"number,omitempty"`
	StyleTags     []string `json:"style_tags"`
	SubjectTags   []string `json:"subject_tags"`
	TechnicalTags []string `json:"technical_tags"`
}

var (
	categoryBracket = regexp.MustCompile(`\*\*\[([^\]\n]+)\]\*\*`)
	promptNumber    = regexp.MustCompile(`(?i)\b(\d+)\.\s*prompt\s*:`)
)

var (
	styleVocabulary = []string{
		"cinematic", "photorealistic", "hyperrealistic", "realistic", "watercolor",
		"oil painting", "digital art", "illustration", "anime", "cartoon",
		"minimalist", "vintage", "retro", "surreal", "fantasy", "noir",
		"editorial", "abstract", "impressionist", "cyberpunk", "steampunk",
		"moody", "dramatic", "pastel", "monochrome", "baroque",
	}
	subjectVocabulary = []string{
		"portrait", "headshot", "landscape", "cityscape", "architecture",
		"product", "food", "fashion", "animal", "wildlife", "nature",
		"interior", "vehicle", "character", "still life", "street",
		"macro subject", "botanical", "seascape", "astronomy",
	}
	technicalVocabulary = []string{
		"4k", "8k", "hdr", "bokeh", "depth of field", "shallow depth of field",
		"wide angle", "telephoto", "macro", "long exposure", "golden hour",
		"studio lighting", "soft lighting", "rim lighting", "backlit",
		"high contrast", "35mm", "50mm", "85mm", "f/1.8", "f/2.8",
		"ray tracing", "octane render", "unreal engine",
	}
)

var (
	styleMatcher     = vocabularyMatcher(styleVocabulary)
	subjectMatcher   = vocabularyMatcher(subjectVocabulary)
	technicalMatcher = vocabularyMatcher(technicalVocabulary)
)

// Extract reads category, number and tags out of a segment. Missing markers
// produce empty values.
func Extract(segment string) Metadata {
	meta := Metadata{
		StyleTags:     matchTags(styleMatcher, segment),
		SubjectTags:   matchTags(subjectMatcher, segment),
		TechnicalTags: matchTags(technicalMatcher, segment),
	}

	if m := categoryBracket.FindStringSubmatch(segment); m != nil {
		parts := strings.SplitN(m[1], "/", 2)
		meta.Category = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			if sub := strings.TrimSpace(parts[1]); sub != "" {
				meta.Subcategory = &sub
			}
		}
	}

	if m := promptNumber.FindStringSubmatch(segment); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			meta.Number = &n
		}
	}

	return meta
}

// vocabularyMatcher builds a case-insensitive whole-word alternation. Longer
// terms come first so "shallow depth of field" wins over "depth of field".
func vocabularyMatcher(vocab []string) *regexp.Regexp {
	terms := append([]string(nil), vocab...)
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + strings.Join(quoted, "|") + `)(?:$|[^\pL\pN])`)
}

// matchTags returns vocabulary hits in first-seen order, deduplicated.
func matchTags(matcher *regexp.Regexp, text string) []string {
	tags := []string{}
	var seen orderedSet
	for rest, offset := text, 0; offset < len(text); {
		loc := matcher.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		term := strings.ToLower(rest[loc[2]:loc[3]])
		if seen.add(term) {
			tags = append(tags, term)
		}
		// Resume right after the term so adjacent terms sharing a separator
		// are still found.
		offset += loc[3]
		rest = text[offset:]
	}
	return tags
}

// orderedSet deduplicates strings under Unicode case folding.
type orderedSet struct {
	keys map[string]struct{}
}

func (s *orderedSet) add(v string) bool {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	key := cases.Fold().String(v)
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// union merges tag lists preserving order, dropping case-insensitive repeats.
func union(lists ...[]string) []string {
	out := []string{}
	var seen orderedSet
	for _, list := range lists {
		for _, v := range list {
			if seen.add(v) {
				out = append(out, v)
			}
		}
	}
	return out
}
