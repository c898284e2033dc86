package composer

import "adda/internal/models"

const (
	firstTab = 1
	lastTab  = 3
)

// gate blocks a Next from one tab unless the draft passes.
type gate struct {
	ok      func(d *models.Draft) bool
	message func(t models.PostType) string
}

// flow is one post type's row in the transition table.
type flow struct {
	next func(tab int) int
	prev func(tab int) int
	// gates are keyed by the tab the Next starts from.
	gates map[int]gate
	// warnOnInvalid surfaces a non-blocking warning when the schema for
	// the current tab fails.
	warnOnInvalid bool
}

func advance(max int) func(int) int {
	return func(tab int) int {
		if tab < max {
			return tab + 1
		}
		return tab
	}
}

func back(tab int) int {
	if tab > firstTab {
		return tab - 1
	}
	return firstTab
}

func jumpTo(tab int) func(int) int {
	return func(int) int { return tab }
}

var mediaGate = gate{
	ok: (*models.Draft).HasStagedMedia,
	message: func(t models.PostType) string {
		return "Please upload a " + string(t) + " first"
	},
}

var articleGate = gate{
	ok: func(d *models.Draft) bool {
		return d.Title != "" && d.ArticleBody != ""
	},
	message: func(models.PostType) string {
		return "Please fill in the article title and body"
	},
}

// flows maps each authoring type to its tab rules:
//
//	text:        any -> 3, back to 1
//	photo/video: 1 -> 2 (needs a staged file), never 3
//	article:     1 -> 2 -> 3 (tab 1 needs title and body)
//	event:       1 -> 2 -> 3, warns on invalid fields
var flows = map[models.PostType]flow{
	models.PostTypeText: {
		next: jumpTo(lastTab),
		prev: jumpTo(firstTab),
	},
	models.PostTypePhoto: {
		next:  advance(2),
		prev:  back,
		gates: map[int]gate{1: mediaGate},
	},
	models.PostTypeVideo: {
		next:  advance(2),
		prev:  back,
		gates: map[int]gate{1: mediaGate},
	},
	models.PostTypeArticle: {
		next:  advance(lastTab),
		prev:  back,
		gates: map[int]gate{1: articleGate},
	},
	models.PostTypeEvent: {
		next:          advance(lastTab),
		prev:          back,
		warnOnInvalid: true,
	},
}

// submitTab returns the tab on which t shows preview + submit.
func submitTab(t models.PostType) int {
	switch t {
	case models.PostTypePhoto, models.PostTypeVideo:
		return 2
	default:
		return lastTab
	}
}

func flowFor(t models.PostType) (flow, bool) {
	f, ok := flows[t]
	return f, ok
}
