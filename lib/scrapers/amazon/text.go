package amazon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const longDateLayout = "January 2, 2006"

var (
	longDateRegex    = regexp.MustCompile(`[A-Za-z]+\s\d{1,2},\s\d{4}`)
	orderNumberRegex = regexp.MustCompile(`\d+-\d+-\d+`)
	moneyStripRegex  = regexp.MustCompile(`[^\d.]`)
	// e.g. "($2.00/oz) $6.00", the trailing amount is the line total
	groceryPriceRegex = regexp.MustCompile(`\(\$[\d,]+\.\d+/\S+\)\s*\$([\d,]+\.\d\d)`)
)

// parses the first long-form date ("January 2, 2006") found in text
func parseLongDate(text string) (time.Time, error) {
	match := longDateRegex.FindString(text)
	if match == "" {
		return time.Time{}, fmt.Errorf("no long-form date in %q", text)
	}
	date, err := time.Parse(longDateLayout, collapseDateSpaces(match))
	if err != nil {
		return time.Time{}, err
	}
	return date, nil
}

var dateSpaces = regexp.MustCompile(`\s+`)

func collapseDateSpaces(s string) string {
	return dateSpaces.ReplaceAllString(s, " ")
}

// strips everything but digits and decimal points and parses the
// remainder as a dollar amount
func parseMoney(text string) (float64, error) {
	stripped := moneyStripRegex.ReplaceAllString(text, "")
	if stripped == "" {
		return 0, fmt.Errorf("no monetary value in %q", text)
	}
	value, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return 0, fmt.Errorf("bad monetary value in %q: %w", text, err)
	}
	return value, nil
}

// the price cell of an item row. grocery-style "($X.XX/unit) $Y.YY"
// resolves to Y.YY; an empty cell resolves to zero, which shows up
// for ancillary charges like bag fees.
func parseUnitPrice(text string) (float64, error) {
	if groups := groceryPriceRegex.FindStringSubmatch(text); groups != nil {
		text = groups[1]
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return parseMoney(text)
}

// the first element among root's descendants matching selector whose
// own text (excluding descendants) contains marker
func findMarker(root *goquery.Selection, selector, marker string) *goquery.Selection {
	return root.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(htmlutil.OwnText(s), marker)
	}).First()
}

// the listing page nests its values in small marker blocks: a div
// holding one span with a label-ish marker and another span with the
// value. hint is a fragment expected in the value text ("," for
// dates, "$" for totals, "-" for order numbers).
func markerBlockValue(container *goquery.Selection, marker, hint string) (string, bool) {
	block := container.Find("div").FilterFunction(func(_ int, div *goquery.Selection) bool {
		return findMarker(div, "span", marker).Length() > 0 &&
			findMarker(div, "span", hint).Length() > 0
	}).First()
	if block.Length() == 0 {
		return "", false
	}
	value := findMarker(block, "span", hint)
	if value.Length() == 0 {
		return "", false
	}
	return htmlutil.TextOf(value), true
}
