package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// Selectors that mark up the primary product image on most storefront and
// catalog pages, tried after og:image metadata.
var productImageSelectors = []string{
	"img#product-image",
	"img.product-img",
	"img.product-image",
	"img.main-image",
	"img[itemprop='image']",
	"div.product-image img",
	"figure img",
}

// imgSrc returns an image element's usable URL, preferring src over the
// lazy-loading data-src fallback.
func imgSrc(sel *goquery.Selection) string {
	if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	if src, ok := sel.Attr("data-src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	return ""
}

// imageCandidates extracts product image candidates from an HTML document in
// three scored tiers: OpenGraph metadata, known product-image selectors, and
// any image whose URL embeds the lookup key's digits (a strong hint that the
// page generated it for this product). Order within a tier follows document
// order; duplicate URLs are left to the ranker, which keeps first
// occurrences, so a URL found in a higher tier retains its higher score.
func imageCandidates(doc *goquery.Document, id model.SourceID, key model.LookupKey, label string) []model.Candidate {
	var out []model.Candidate

	doc.Find(`meta[property="og:image"], meta[name="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content := strings.TrimSpace(sel.AttrOr("content", "")); content != "" {
			out = append(out, model.Candidate{URL: content, Label: label, Source: id, Score: 0.9})
		}
	})

	for _, selector := range productImageSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if u := imgSrc(sel); u != "" {
				out = append(out, model.Candidate{URL: u, Label: label, Source: id, Score: 0.8})
			}
		})
	}

	if !key.IsNone() {
		doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
			u := imgSrc(sel)
			if u != "" && strings.Contains(u, string(key)) {
				out = append(out, model.Candidate{URL: u, Label: label, Source: id, Score: 0.7})
			}
		})
	}

	return out
}

// productDescription finds the free-text description near a "Description"
// heading: first a span or p inside the heading's parent, then the heading's
// following siblings.
func productDescription(doc *goquery.Document) string {
	var heading *goquery.Selection
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(sel.Text()), "description") {
			heading = sel
			return false
		}
		return true
	})
	if heading == nil {
		return ""
	}

	if text := collapseSpace(heading.Parent().Find("span, p").First().Text()); text != "" {
		return text
	}

	var desc string
	heading.NextAll().EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !sel.Is("span, p, div") {
			return true
		}
		if text := collapseSpace(sel.Text()); text != "" {
			desc = text
			return false
		}
		return true
	})
	return desc
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
