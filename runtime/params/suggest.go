package params

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns the known parameter type closest to typ, or "".
func Suggest(typ string) string {
	return findClosestMatch(typ, Types())
}

func suggestClass(class string) string {
	classes := make([]string, 0, len(typedBuilders))
	for name := range typedBuilders {
		classes = append(classes, name)
	}
	if m := findClosestMatch(class, classes); m != "" {
		return "QgsProcessingParameter" + m
	}
	return ""
}

func findClosestMatch(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// The other way round catches typos with extra letters ("numbers").
	lower := strings.ToLower(target)
	for _, c := range candidates {
		if strings.Contains(lower, c) {
			return c
		}
	}
	return ""
}
