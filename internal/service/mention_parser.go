package service

import (
	"regexp"
	"sort"
	"strings"
)

// ParsedMention is the raw extraction result before resolution. Exactly one
// of BrandID/Slug is set for slug-form mentions; inline markup always
// carries the brand id.
type ParsedMention struct {
	BrandID string
	Slug    string
	Display string
}

var (
	// Inline markup form: any element carrying data-mention-id, with the
	// display text as its inner text, e.g.
	//   <span data-mention-id="abc123">Acme</span>
	mentionAttrRe = regexp.MustCompile(`<[^<>]*\bdata-mention-id="([^"]+)"[^<>]*>([^<]*)<`)

	// Markdown-ish fallback form: @[Acme](brand:abc123) or @[Acme](slug:acme)
	mentionTextRe = regexp.MustCompile(`@\[([^\[\]]+)\]\((?:brand:([A-Za-z0-9-]+)|slug:([A-Za-z0-9_-]+))\)`)
)

// ExtractMentions scans free-form HTML/text for brand mentions. Pure
// function: no I/O, identical input yields an identically-ordered result.
// Output is de-duplicated by brand id (or slug, when only a slug is known);
// the first occurrence wins for the display label. Malformed markup is
// skipped, never an error.
func ExtractMentions(text string) []ParsedMention {
	if text == "" {
		return nil
	}

	type hit struct {
		pos     int
		mention ParsedMention
	}
	var hits []hit

	for _, m := range mentionAttrRe.FindAllStringSubmatchIndex(text, -1) {
		id := text[m[2]:m[3]]
		display := strings.TrimSpace(text[m[4]:m[5]])
		if id == "" {
			continue
		}
		hits = append(hits, hit{pos: m[0], mention: ParsedMention{BrandID: id, Display: display}})
	}

	for _, m := range mentionTextRe.FindAllStringSubmatchIndex(text, -1) {
		display := strings.TrimSpace(text[m[2]:m[3]])
		parsed := ParsedMention{Display: display}
		if m[4] >= 0 {
			parsed.BrandID = text[m[4]:m[5]]
		} else if m[6] >= 0 {
			parsed.Slug = text[m[6]:m[7]]
		} else {
			continue
		}
		hits = append(hits, hit{pos: m[0], mention: parsed})
	}

	// Appearance order across both forms keeps the output deterministic
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool, len(hits))
	mentions := make([]ParsedMention, 0, len(hits))
	for _, h := range hits {
		key := "b:" + h.mention.BrandID
		if h.mention.BrandID == "" {
			key = "s:" + h.mention.Slug
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		mentions = append(mentions, h.mention)
	}
	if len(mentions) == 0 {
		return nil
	}
	return mentions
}
