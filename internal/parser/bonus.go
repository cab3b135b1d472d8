package parser

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// BonusFeature is a canonical amenity tag and the keywords that signal it.
type BonusFeature struct {
	Tag     string
	Aliases []string
}

type BonusVocabulary []BonusFeature

// DefaultBonusVocabulary is used when the config does not define one.
var DefaultBonusVocabulary = BonusVocabulary{
	{Tag: "balcony", Aliases: []string{"balcony", "מרפסת"}},
	{Tag: "big windows", Aliases: []string{"big windows", "large windows", "חלונות גדולים"}},
	{Tag: "penthouse", Aliases: []string{"penthouse", "פנטהאוז", "פנטהאוס"}},
	{Tag: "rooftop", Aliases: []string{"rooftop", "roof", "גג"}},
	{Tag: "terrace", Aliases: []string{"terrace", "טרסה"}},
}

// NewBonusVocabulary builds a vocabulary from a tag -> aliases map. Tags are
// canonicalized and sorted; the tag itself always counts as an alias.
func NewBonusVocabulary(m map[string][]string) BonusVocabulary {
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	vocab := make(BonusVocabulary, 0, len(tags))
	for _, tag := range tags {
		canon := CanonicalTag(tag)
		if canon == "" {
			continue
		}
		aliases := []string{canon}
		for _, a := range m[tag] {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		vocab = append(vocab, BonusFeature{Tag: canon, Aliases: aliases})
	}
	return vocab
}

// ExtractBonusFeatures returns every tag with at least one alias in text,
// sorted and deduplicated.
func ExtractBonusFeatures(text string, vocab BonusVocabulary) []string {
	folded := foldText(text)
	found := mapset.NewThreadUnsafeSet[string]()
	for _, feature := range vocab {
		for _, alias := range feature.Aliases {
			a := foldText(alias)
			if a != "" && strings.Contains(folded, a) {
				found.Add(CanonicalTag(feature.Tag))
				break
			}
		}
	}
	return sortedTags(found)
}

// unionTags canonicalizes and merges tag lists.
func unionTags(lists ...[]string) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, list := range lists {
		for _, tag := range list {
			if t := CanonicalTag(tag); t != "" {
				set.Add(t)
			}
		}
	}
	return sortedTags(set)
}

func sortedTags(set mapset.Set[string]) []string {
	tags := set.ToSlice()
	sort.Strings(tags)
	return tags
}
