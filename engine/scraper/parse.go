package scraper

import (
	"html"
	"regexp"
	"strings"

	"github.com/Kunal-Pramanik/Connect2Faculty/engine/domain"
)

// Regex-based extraction, not a DOM parser. The directory's markup is
// class-tagged flat blocks, which these patterns handle; a site redesign
// means updating the patterns, same as it would a selector file.
var (
	cardStartRe = regexp.MustCompile(`<(?:div|article)[^>]*class="[^"]*(?:facultyDetails|views-row|node)[^"]*"[^>]*>`)
	linkRe      = regexp.MustCompile(`(?s)<a\s+[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	imgRe       = regexp.MustCompile(`<img[^>]*src="([^"]+)"`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	spaceRe     = regexp.MustCompile(`\s+`)

	paraRe = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
	itemRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)

	aboutRe    = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*\babout\b[^"]*"[^>]*>(.*?)</div>`)
	workExpRe  = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*\bwork-exp\b[^"]*"[^>]*>(.*?)</div>`)
	pubBlockRe = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*\beducation\b[^"]*overflowContent[^"]*"[^>]*>(.*?)</div>`)
)

// parseListing extracts one Faculty per directory card. Card fields that the
// page does not carry come back as the N/A placeholder, matching what the
// corpus has always stored.
func parseListing(page, baseURL string) []domain.Faculty {
	var out []domain.Faculty
	for _, card := range splitCards(page) {
		name, profileURL := cardLink(card, baseURL)
		if name == "" {
			continue
		}
		f := domain.Faculty{
			Name:           name,
			ProfileURL:     profileURL,
			Qualification:  classText(card, "facultyEducation"),
			Phone:          classText(card, "facultyNumber"),
			Address:        classText(card, "facultyAddress"),
			Email:          classText(card, "facultyemail"),
			Specialization: classText(card, "areaSpecialization"),
			ImageURL:       cardImage(card, baseURL),

			Biography:         domain.Missing,
			ResearchInterests: domain.Missing,
			Teaching:          domain.Missing,
			Publications:      domain.Missing,
		}
		out = append(out, f)
	}
	return out
}

// parseProfile fills the long-form fields from a profile page. Fields the
// page lacks keep their placeholder.
func parseProfile(page string, f *domain.Faculty) {
	if m := aboutRe.FindStringSubmatch(page); m != nil {
		var paras []string
		for _, p := range paraRe.FindAllStringSubmatch(m[1], -1) {
			if t := cleanFragment(p[1]); t != "" {
				paras = append(paras, t)
			}
		}
		if len(paras) > 0 {
			f.Biography = strings.Join(paras, " ")
		}
	}

	// The first work-exp block's paragraph is the research statement, its
	// list items are taught courses.
	var teaching []string
	for i, m := range workExpRe.FindAllStringSubmatch(page, -1) {
		if i == 0 {
			if p := paraRe.FindStringSubmatch(m[1]); p != nil {
				if t := cleanFragment(p[1]); t != "" {
					f.ResearchInterests = t
				}
			}
		}
		for _, li := range itemRe.FindAllStringSubmatch(m[1], -1) {
			if t := cleanFragment(li[1]); t != "" {
				teaching = append(teaching, t)
			}
		}
	}
	if len(teaching) > 0 {
		f.Teaching = strings.Join(teaching, " | ")
	}

	if m := pubBlockRe.FindStringSubmatch(page); m != nil {
		var pubs []string
		for _, li := range itemRe.FindAllStringSubmatch(m[1], -1) {
			if t := cleanFragment(li[1]); t != "" {
				pubs = append(pubs, t)
			}
		}
		if len(pubs) > 0 {
			f.Publications = strings.Join(pubs, " | ")
		}
	}
}

// splitCards slices the page into per-card fragments, each running from one
// card opener to the next. Trailing markup after the last card is harmless:
// the class-scoped extractors ignore it.
func splitCards(page string) []string {
	locs := cardStartRe.FindAllStringIndex(page, -1)
	cards := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(page)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		cards = append(cards, page[loc[0]:end])
	}
	return cards
}

// cardLink returns the card's anchor text and resolved href.
func cardLink(card, baseURL string) (name, url string) {
	m := linkRe.FindStringSubmatch(card)
	if m == nil {
		return "", ""
	}
	return cleanFragment(m[2]), resolveURL(baseURL, m[1])
}

func cardImage(card, baseURL string) string {
	m := imgRe.FindStringSubmatch(card)
	if m == nil {
		return domain.Missing
	}
	return resolveURL(baseURL, m[1])
}

// classText returns the collapsed text of the first element tagged with the
// given class, or the N/A placeholder.
func classText(fragment, class string) string {
	re := regexp.MustCompile(`(?s)<[^>]*class="[^"]*\b` + regexp.QuoteMeta(class) + `\b[^"]*"[^>]*>(.*?)</`)
	m := re.FindStringSubmatch(fragment)
	if m == nil {
		return domain.Missing
	}
	if t := cleanFragment(m[1]); t != "" {
		return t
	}
	return domain.Missing
}

// cleanFragment strips tags, unescapes entities, and collapses whitespace.
func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
