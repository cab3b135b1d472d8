package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go-apartment-scout/internal/models"
)

const (
	minMonthlyRent = 1500
	maxMonthlyRent = 25000
	minRooms       = 1.0
	maxRooms       = 10.0

	// primaryFields is the coverage denominator: price, rooms, location, listing type.
	primaryFields = 4
)

type pricePattern struct {
	re         *regexp.Regexp
	confidence float64
}

// amount is a 4-5 digit rent with an optional thousands separator.
const amount = `([0-9]{1,2}[,.]?[0-9]{3})`

// amountEnd rejects an amount that continues as a longer number, so
// "2,450,000" never yields 2,450.
const amountEnd = `(?:[,.](?:[^0-9]|$)|[^0-9,.]|$)`

var (
	pricePatterns = []pricePattern{
		// currency symbol or word adjacent to the amount
		{regexp.MustCompile(`₪\s*` + amount + amountEnd), 0.95},
		{regexp.MustCompile(`(?:^|[^0-9,.])` + amount + `\s*₪`), 0.95},
		{regexp.MustCompile(`(?i)(?:^|[^0-9,.])` + amount + `\s*(?:ש"ח|ש״ח|שח|שקל|nis\b|ils\b|shekels?\b)`), 0.95},
		// labeled
		{regexp.MustCompile(`מחיר[:\s]+` + amount + amountEnd), 0.85},
		{regexp.MustCompile(`שכירות[:\s]+` + amount + amountEnd), 0.85},
		{regexp.MustCompile(`(?i)\b(?:price|rent)[:\s]+` + amount + amountEnd), 0.85},
		// per month
		{regexp.MustCompile(`(?i)(?:^|[^0-9,.])` + amount + `\s*(?:לחודש|לחו['׳]|/חודש|per month|a month|/month|/mo\b)`), 0.85},
	}

	roomsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([0-9]+(?:[.,][0-9])?)\s*חדרים`),
		regexp.MustCompile(`([0-9]+(?:[.,][0-9])?)\s*חד['׳]?`),
		regexp.MustCompile(`דירת?\s*([0-9]+(?:[.,][0-9])?)\s*חד`),
		regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9])?)[\s-]*rooms?\b`),
		regexp.MustCompile(`([0-9]+(?:[.,][0-9])?)\s*ח(?:[^\p{L}]|$)`),
	}

	streetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`רחוב\s+([א-ת ]+)`),
		regexp.MustCompile(`רח['׳]\s*([א-ת ]+)`),
		regexp.MustCompile(`(?i)\bstreet\s+([a-z]+)`),
	}

	roommatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`שותפ|שותף`),
		regexp.MustCompile(`חדר\s+בדירה`),
		regexp.MustCompile(`חדר\s+להשכרה`),
		regexp.MustCompile(`מחפש(?:ת|ים|ות)?\s+שותפ`),
		regexp.MustCompile(`roommate|flatmate`),
		regexp.MustCompile(`looking\s+for\s+(?:a\s+)?room`),
		regexp.MustCompile(`room\s+in\s+(?:a\s+)?(?:shared\s+)?(?:apartment|flat)`),
	}

	wholeUnitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`דירה\s+(?:שלמה|להשכרה|ל?מסירה)`),
		regexp.MustCompile(`דירת\s+[0-9]+(?:[.,][0-9])?\s+חדרים?\s+להשכרה`),
		regexp.MustCompile(`whole\s+(?:apartment|flat)`),
		regexp.MustCompile(`entire\s+(?:apartment|flat)`),
		regexp.MustCompile(`למסירה`),
		regexp.MustCompile(`פינוי`),
	}

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[^0-9+])(05[0-9][-. ]?[0-9]{3}[-. ]?[0-9]{4})`),
		regexp.MustCompile(`(?:^|[^0-9+])(05[0-9]{8})`),
		regexp.MustCompile(`(\+972[-. ]?5[0-9][-. ]?[0-9]{3}[-. ]?[0-9]{4})`),
	}

	phoneSeparators = strings.NewReplacer("-", "", ".", "", " ", "")
)

// ExtractPrice returns the monthly rent and its confidence. The first
// pattern yielding an in-range amount wins.
func ExtractPrice(text string) (*int, float64) {
	for _, p := range pricePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			digits := strings.NewReplacer(",", "", ".", "").Replace(m[1])
			price, err := strconv.Atoi(digits)
			if err != nil {
				continue
			}
			if price >= minMonthlyRent && price <= maxMonthlyRent {
				return &price, p.confidence
			}
		}
	}
	return nil, 0.0
}

// ExtractRooms returns the first in-range room count, allowing half rooms.
func ExtractRooms(text string) (*float64, float64) {
	for _, re := range roomsPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			rooms, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
			if err != nil {
				continue
			}
			if rooms >= minRooms && rooms <= maxRooms {
				return &rooms, 0.9
			}
		}
	}
	return nil, 0.0
}

// ExtractLocation matches the neighborhood vocabulary first and falls back
// to a "street:<name>" tag.
func ExtractLocation(text string) (*string, float64) {
	folded := foldText(text)
	for _, n := range Neighborhoods {
		for _, alias := range n.Aliases {
			if strings.Contains(folded, foldText(alias)) {
				key := n.Key
				return &key, 0.9
			}
		}
	}

	for _, re := range streetPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		street := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(street) > 2 {
			loc := "street:" + street
			return &loc, 0.6
		}
	}
	return nil, 0.0
}

// ExtractListingType reports true for a room in a shared apartment and false
// for a whole unit. Roommate indicators are checked first.
func ExtractListingType(text string) (*bool, float64) {
	lowered := strings.ToLower(text)
	for _, re := range roommatePatterns {
		if re.MatchString(lowered) {
			v := true
			return &v, 0.85
		}
	}
	for _, re := range wholeUnitPatterns {
		if re.MatchString(lowered) {
			v := false
			return &v, 0.85
		}
	}
	return nil, 0.0
}

// ExtractContact returns a mobile number with separators removed.
func ExtractContact(text string) (*string, float64) {
	for _, re := range phonePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		phone := phoneSeparators.Replace(m[1])
		return &phone, 0.95
	}
	return nil, 0.0
}

// ParseWithRegex runs every field extractor over text. Confidence is 60%
// the mean confidence of the fields found and 40% primary-field coverage.
func ParseWithRegex(text string, bonus BonusVocabulary) models.RegexParseResult {
	result := models.RegexParseResult{
		MatchedFields: []string{},
		BonusFeatures: ExtractBonusFeatures(text, bonus),
	}
	var confidences []float64
	primary := 0

	if price, conf := ExtractPrice(text); price != nil {
		result.Price = price
		result.MatchedFields = append(result.MatchedFields, "price")
		confidences = append(confidences, conf)
		primary++
	}
	if rooms, conf := ExtractRooms(text); rooms != nil {
		result.Rooms = rooms
		result.MatchedFields = append(result.MatchedFields, "rooms")
		confidences = append(confidences, conf)
		primary++
	}
	if loc, conf := ExtractLocation(text); loc != nil {
		result.Location = loc
		result.MatchedFields = append(result.MatchedFields, "location")
		confidences = append(confidences, conf)
		primary++
	}
	if roommates, conf := ExtractListingType(text); roommates != nil {
		result.IsRoommates = roommates
		result.MatchedFields = append(result.MatchedFields, "is_roommates")
		confidences = append(confidences, conf)
		primary++
	}
	if contact, conf := ExtractContact(text); contact != nil {
		result.ContactInfo = contact
		result.MatchedFields = append(result.MatchedFields, "contact")
		confidences = append(confidences, conf)
	}

	if len(confidences) > 0 {
		sum := 0.0
		for _, c := range confidences {
			sum += c
		}
		avg := sum / float64(len(confidences))
		coverage := float64(primary) / primaryFields
		result.Confidence = avg*0.6 + coverage*0.4
	}
	return result
}
