package mrz

import (
	"strconv"
	"time"

	"github.com/zombor/mrz-scanner/internal/engine"
)

// aggregation decides how per-source validation verdicts combine into one
// field-level flag.
type aggregation int

const (
	// aggregateAll flags the field when any contributing source failed.
	aggregateAll aggregation = iota
	// aggregateAny flags the field only when no candidate source passed and
	// at least one failed.
	aggregateAny
)

// fieldDescriptor binds a normalized field to the raw engine fields that
// supply it.
type fieldDescriptor struct {
	id        FieldID
	sources   []string
	aggregate aggregation
}

// descriptorsFor enumerates the field mapping for one code type. The
// document number reads from the passport-specific field for TD3 passports
// and from the generic document field otherwise, with the long document
// number as the accepted fallback for both.
func descriptorsFor(codeType string) []fieldDescriptor {
	numberPrimary := SourceDocumentNumber
	if codeType == CodeTypeTD3Passport {
		numberPrimary = SourcePassportNumber
	}
	return []fieldDescriptor{
		{FieldDocumentNumber, []string{numberPrimary, SourceLongDocumentNumber}, aggregateAny},
		{FieldDateOfBirth, []string{SourceBirthYear, SourceBirthMonth, SourceBirthDay}, aggregateAll},
		{FieldDateOfExpiry, []string{SourceExpiryYear, SourceExpiryMonth, SourceExpiryDay}, aggregateAll},
		{FieldLastName, []string{SourcePrimaryID}, aggregateAll},
		{FieldFirstName, []string{SourceSecondaryID}, aggregateAll},
		{FieldSex, []string{SourceSex}, aggregateAll},
		{FieldIssuingState, []string{SourceIssuingState}, aggregateAll},
		{FieldNationality, []string{SourceNationality}, aggregateAll},
	}
}

// invalidUnder evaluates one descriptor against the engine's verdicts.
func invalidUnder(fields engine.ParsedFields, d fieldDescriptor) bool {
	var anyFailed, anyPassed bool
	for _, src := range d.sources {
		switch fields.FieldValidity(src) {
		case engine.ValidationFailed:
			anyFailed = true
		case engine.ValidationPassed:
			anyPassed = true
		}
	}
	if d.aggregate == aggregateAny {
		return anyFailed && !anyPassed
	}
	return anyFailed
}

// parseDate assembles a structured date from three raw sub-fields. Sub-field
// values that fail to parse leave their component at zero; validity flagging
// is handled separately through the descriptor table.
func parseDate(fields engine.ParsedFields, yearSrc, monthSrc, daySrc string) Date {
	atoi := func(src string) int {
		n, err := strconv.Atoi(fields.FieldValue(src))
		if err != nil {
			return 0
		}
		return n
	}
	return Date{Year: atoi(yearSrc), Month: atoi(monthSrc), Day: atoi(daySrc)}
}

// ProcessMRZData turns one recognized text line plus the engine's parsed
// fields into a normalized Data record. Unrecognized code types are a hard
// failure; malformed individual fields are not, they are reported through
// InvalidFields on an otherwise complete record.
func ProcessMRZData(text, codeType string, fields engine.ParsedFields, now time.Time) (*Data, error) {
	docType, err := DocumentTypeFromCode(codeType)
	if err != nil {
		return nil, err
	}

	descriptors := descriptorsFor(codeType)

	number := fields.FieldValue(descriptors[0].sources[0])
	if number == "" {
		number = fields.FieldValue(SourceLongDocumentNumber)
	}

	birth := parseDate(fields, SourceBirthYear, SourceBirthMonth, SourceBirthDay)
	expiry := parseDate(fields, SourceExpiryYear, SourceExpiryMonth, SourceExpiryDay)

	data := &Data{
		DocumentType:   docType,
		DocumentNumber: number,
		MRZText:        text,
		FirstName:      fields.FieldValue(SourceSecondaryID),
		LastName:       fields.FieldValue(SourcePrimaryID),
		Sex:            fields.FieldValue(SourceSex),
		IssuingState:   fields.FieldValue(SourceIssuingState),
		Nationality:    fields.FieldValue(SourceNationality),
		Age:            Age(birth, now),
		DateOfBirth:    birth,
		DateOfExpiry:   expiry,
		InvalidFields:  make([]FieldID, 0),
	}

	for _, d := range descriptors {
		if invalidUnder(fields, d) {
			data.InvalidFields = append(data.InvalidFields, d.id)
		}
	}

	return data, nil
}
