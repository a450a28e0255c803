package deck

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gubarz/mdslides/internal/parser"
	"github.com/gubarz/mdslides/internal/render"
)

// Slide is a final slide with its display page number (0 when unnumbered)
type Slide struct {
	render.Slide
	Page int `json:"page,omitempty"`
}

// Deck is the compiled document
type Deck struct {
	Global     parser.Global `json:"global"`
	Slides     []Slide       `json:"slides"`
	Generation uint64        `json:"generation"`
	Stats      Stats         `json:"-"`
}

// Paginate numbers slides from 1, skipping hidden and cover slides
func Paginate(slides []render.Slide) []Slide {
	out := make([]Slide, len(slides))
	page := 0
	for i, s := range slides {
		out[i] = Slide{Slide: s}
		if s.Hidden || s.Cover {
			continue
		}
		page++
		out[i].Page = page
	}
	return out
}

// Len returns the number of slides
func (d *Deck) Len() int {
	return len(d.Slides)
}

// SlideAtLine returns the index of the slide whose range holds the document
// line, or -1 (preamble, separator lines or out of range).
func (d *Deck) SlideAtLine(line int) int {
	for i, s := range d.Slides {
		if s.Range.Contains(line) {
			return i
		}
	}
	return -1
}

// LineOfSlide returns the first source line of slide i, or 0 when out of range
func (d *Deck) LineOfSlide(i int) int {
	if i < 0 || i >= len(d.Slides) {
		return 0
	}
	return d.Slides[i].Range.StartLine
}

// Next returns the index of the next visible slide after i in direction dir
// (+1 or -1). Hidden slides are skipped; i is returned when nothing is left.
func (d *Deck) Next(i, dir int) int {
	if dir == 0 {
		return i
	}
	if dir > 0 {
		dir = 1
	} else {
		dir = -1
	}
	for j := i + dir; j >= 0 && j < len(d.Slides); j += dir {
		if !d.Slides[j].Hidden {
			return j
		}
	}
	return i
}

// Prev is Next(i, -1)
func (d *Deck) Prev(i int) int {
	return d.Next(i, -1)
}

// PageCount returns the highest display page number
func (d *Deck) PageCount() int {
	n := 0
	for _, s := range d.Slides {
		if s.Page > n {
			n = s.Page
		}
	}
	return n
}

var absoluteThemeRe = regexp.MustCompile(`^(https?:|/|data:)`)

// ThemeURL resolves the @theme stylesheet against baseURL and appends the
// cache bust. Empty when the deck has no theme.
func (d *Deck) ThemeURL(baseURL string, bust int64) string {
	theme := d.Global.ThemeCSS
	if theme == "" {
		return ""
	}
	if baseURL != "" && !absoluteThemeRe.MatchString(theme) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		theme = baseURL + strings.TrimPrefix(theme, "./")
	}
	if bust > 0 {
		sep := "?"
		if strings.Contains(theme, "?") {
			sep = "&"
		}
		theme += sep + "t=" + strconv.FormatInt(bust, 10)
	}
	return theme
}
