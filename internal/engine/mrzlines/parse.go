// Package mrzlines parses ICAO 9303 machine-readable-zone text into the
// engine's parsed-field contract, verifying the 7-3-1 check digits that back
// per-field validation statuses.
package mrzlines

import (
	"errors"
	"strconv"
	"strings"

	"github.com/zombor/mrz-scanner/internal/engine"
)

// ErrNoMRZ is returned when the input text carries no recognizable zone.
var ErrNoMRZ = errors.New("no machine-readable zone found")

// Code-type strings reported on parse results. CodeTypeUnknown is emitted
// for well-formed zones whose document code letter is outside the MRTD set.
const (
	CodeTypeTD1ID       = "MRTD_TD1_ID"
	CodeTypeTD2ID       = "MRTD_TD2_ID"
	CodeTypeTD2Visa     = "MRTD_TD2_VISA"
	CodeTypeTD3Passport = "MRTD_TD3_PASSPORT"
	CodeTypeTD3Visa     = "MRTD_TD3_VISA"
	CodeTypeUnknown     = "MRTD_UNKNOWN"
)

type field struct {
	value  string
	raw    string
	status engine.ValidationStatus
}

// Result is a parsed zone. It implements engine.ParsedFields.
type Result struct {
	CodeType string
	Text     string
	fields   map[string]field
}

// FieldValue implements engine.ParsedFields.
func (r *Result) FieldValue(name string) string { return r.fields[name].value }

// FieldRawValue implements engine.ParsedFields.
func (r *Result) FieldRawValue(name string) string { return r.fields[name].raw }

// FieldValidity implements engine.ParsedFields.
func (r *Result) FieldValidity(name string) engine.ValidationStatus {
	return r.fields[name].status
}

// Batch wraps a parse result and its source frame as a captured-item batch.
func Batch(frame []byte, r *Result) engine.CapturedResult {
	items := []engine.ResultItem{
		engine.TextLineItem{Text: r.Text},
		engine.ParsedResultItem{CodeType: r.CodeType, Fields: r},
	}
	if frame != nil {
		items = append([]engine.ResultItem{engine.OriginalImageItem{Image: frame}}, items...)
	}
	return engine.CapturedResult{Items: items}
}

// ExtractLines filters recognized text down to candidate MRZ lines: the
// MRZ charset only, at one of the three standard lengths.
func ExtractLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(line), " ", ""))
		if len(line) != 30 && len(line) != 36 && len(line) != 44 {
			continue
		}
		if !isMRZCharset(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Parse extracts and validates the machine-readable zone from recognized
// text. Malformed individual fields do not fail the parse; they surface as
// failed validation statuses.
func Parse(text string) (*Result, error) {
	lines := ExtractLines(text)

	switch {
	case len(lines) >= 3 && len(lines[0]) == 30:
		return parseTD1(lines[:3]), nil
	case len(lines) >= 2 && len(lines[0]) == 36:
		return parseTD2(lines[:2]), nil
	case len(lines) >= 2 && len(lines[0]) == 44:
		return parseTD3(lines[:2]), nil
	}
	return nil, ErrNoMRZ
}

func parseTD3(lines []string) *Result {
	l1, l2 := lines[0], lines[1]
	r := &Result{Text: strings.Join(lines, "\n"), fields: map[string]field{}}

	switch l1[0] {
	case 'P':
		r.CodeType = CodeTypeTD3Passport
	case 'V':
		r.CodeType = CodeTypeTD3Visa
	default:
		r.CodeType = CodeTypeUnknown
	}

	r.setCountry("issuingState", l1[2:5])
	r.setNames(l1[5:])

	numberField := "passportNumber"
	if r.CodeType != CodeTypeTD3Passport {
		numberField = "documentNumber"
	}
	r.setChecked(numberField, l2[0:9], l2[9])
	r.setCountry("nationality", l2[10:13])
	r.setDate("birth", l2[13:19], l2[19])
	r.setSex(l2[20])
	r.setDate("expiry", l2[21:27], l2[27])
	return r
}

func parseTD2(lines []string) *Result {
	l1, l2 := lines[0], lines[1]
	r := &Result{Text: strings.Join(lines, "\n"), fields: map[string]field{}}

	switch l1[0] {
	case 'V':
		r.CodeType = CodeTypeTD2Visa
	case 'I', 'A', 'C':
		r.CodeType = CodeTypeTD2ID
	default:
		r.CodeType = CodeTypeUnknown
	}

	r.setCountry("issuingState", l1[2:5])
	r.setNames(l1[5:])
	r.setChecked("documentNumber", l2[0:9], l2[9])
	r.setCountry("nationality", l2[10:13])
	r.setDate("birth", l2[13:19], l2[19])
	r.setSex(l2[20])
	r.setDate("expiry", l2[21:27], l2[27])
	return r
}

func parseTD1(lines []string) *Result {
	l1, l2, l3 := lines[0], lines[1], lines[2]
	r := &Result{Text: strings.Join(lines, "\n"), fields: map[string]field{}}

	switch l1[0] {
	case 'I', 'A', 'C':
		r.CodeType = CodeTypeTD1ID
	default:
		r.CodeType = CodeTypeUnknown
	}

	r.setCountry("issuingState", l1[2:5])

	// A nine-character document number carries its check digit at position
	// 14. Longer numbers mark position 14 with '<' and continue into the
	// optional field, terminated by their own check digit.
	if l1[14] == '<' {
		optional := l1[15:30]
		if end := strings.IndexByte(optional, '<'); end > 0 {
			r.setChecked("longDocumentNumber", l1[5:14]+optional[:end-1], optional[end-1])
		}
	} else {
		r.setChecked("documentNumber", l1[5:14], l1[14])
	}

	r.setDate("birth", l2[0:6], l2[6])
	r.setSex(l2[7])
	r.setDate("expiry", l2[8:14], l2[14])
	r.setCountry("nationality", l2[15:18])
	r.setNames(l3)
	return r
}

// setChecked stores a value field validated by its trailing check digit.
func (r *Result) setChecked(name, raw string, check byte) {
	status := verifyCheckDigit(raw, check)
	r.fields[name] = field{value: trimFiller(raw), raw: raw, status: status}
}

// setDate splits a YYMMDD group into three sub-fields. A failed group check
// digit fails all three; otherwise each component is range-checked on its
// own.
func (r *Result) setDate(prefix, raw string, check byte) {
	groupOK := verifyCheckDigit(raw, check) == engine.ValidationPassed

	set := func(suffix, part string, min, max int) {
		n, err := strconv.Atoi(part)
		status := engine.ValidationPassed
		if !groupOK || err != nil || n < min || n > max {
			status = engine.ValidationFailed
		}
		value := part
		if err == nil {
			value = strconv.Itoa(n)
		}
		r.fields[prefix+suffix] = field{value: value, raw: part, status: status}
	}
	set("Year", raw[0:2], 0, 99)
	set("Month", raw[2:4], 1, 12)
	set("Day", raw[4:6], 1, 31)
}

func (r *Result) setSex(c byte) {
	status := engine.ValidationPassed
	value := string(c)
	switch c {
	case 'M', 'F', 'X':
	case '<':
		value = "X"
	default:
		status = engine.ValidationFailed
	}
	r.fields["sex"] = field{value: value, raw: string(c), status: status}
}

func (r *Result) setCountry(name, raw string) {
	status := engine.ValidationPassed
	for i := 0; i < len(raw); i++ {
		if (raw[i] < 'A' || raw[i] > 'Z') && raw[i] != '<' {
			status = engine.ValidationFailed
		}
	}
	r.fields[name] = field{value: trimFiller(raw), raw: raw, status: status}
}

// setNames splits the primary<<secondary identifier group.
func (r *Result) setNames(raw string) {
	primary, secondary, _ := strings.Cut(raw, "<<")
	set := func(name, part string) {
		value := strings.TrimSpace(strings.ReplaceAll(part, "<", " "))
		status := engine.ValidationPassed
		if name == "primaryIdentifier" && value == "" {
			status = engine.ValidationFailed
		}
		r.fields[name] = field{value: value, raw: part, status: status}
	}
	set("primaryIdentifier", primary)
	set("secondaryIdentifier", strings.TrimRight(secondary, "<"))
}

// checkDigit computes the ICAO 9303 7-3-1 check digit.
func checkDigit(s string) int {
	weights := []int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return sum % 10
}

func verifyCheckDigit(s string, check byte) engine.ValidationStatus {
	if check < '0' || check > '9' {
		return engine.ValidationFailed
	}
	if checkDigit(s) != int(check-'0') {
		return engine.ValidationFailed
	}
	return engine.ValidationPassed
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

func isMRZCharset(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '<' && (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func trimFiller(s string) string {
	return strings.Trim(strings.ReplaceAll(s, "<", " "), " ")
}
