package extract

import (
	"strconv"
	"strings"
)

var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// RatingFromClass maps the last token of a star-rating class attribute
// ("star-rating Four") to its numeric rating as a decimal string. Unknown
// tokens report false.
func RatingFromClass(class string) (string, bool) {
	tokens := strings.Fields(class)
	if len(tokens) == 0 {
		return "", false
	}
	n, ok := ratingWords[tokens[len(tokens)-1]]
	if !ok {
		return "", false
	}
	return strconv.Itoa(n), true
}
