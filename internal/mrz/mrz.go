package mrz

import (
	"errors"
	"fmt"
)

// ErrUnknownDocumentType is returned when the engine reports a code type
// outside the supported MRTD set.
var ErrUnknownDocumentType = errors.New("unknown document type")

// DocumentType is the ICAO format class of a scanned document.
type DocumentType string

const (
	TD1      DocumentType = "td1"
	TD2      DocumentType = "td2"
	Passport DocumentType = "passport"
)

// Engine code-type strings as reported on a parsed result.
const (
	CodeTypeTD1ID       = "MRTD_TD1_ID"
	CodeTypeTD2ID       = "MRTD_TD2_ID"
	CodeTypeTD2Visa     = "MRTD_TD2_VISA"
	CodeTypeTD3Passport = "MRTD_TD3_PASSPORT"
	CodeTypeTD3Visa     = "MRTD_TD3_VISA"
)

// DocumentTypeFromCode maps an engine code-type string to a format class.
func DocumentTypeFromCode(codeType string) (DocumentType, error) {
	switch codeType {
	case CodeTypeTD1ID:
		return TD1, nil
	case CodeTypeTD2ID, CodeTypeTD2Visa:
		return TD2, nil
	case CodeTypeTD3Passport, CodeTypeTD3Visa:
		return Passport, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, codeType)
	}
}

// FieldID identifies a normalized MRZ field in validation reporting.
type FieldID string

const (
	FieldDocumentNumber FieldID = "documentNumber"
	FieldFirstName      FieldID = "firstName"
	FieldLastName       FieldID = "lastName"
	FieldSex            FieldID = "sex"
	FieldIssuingState   FieldID = "issuingState"
	FieldNationality    FieldID = "nationality"
	FieldDateOfBirth    FieldID = "dateOfBirth"
	FieldDateOfExpiry   FieldID = "dateOfExpiry"
)

// Raw engine field names read through the ParsedFields accessor.
const (
	SourceDocumentNumber     = "documentNumber"
	SourcePassportNumber     = "passportNumber"
	SourceLongDocumentNumber = "longDocumentNumber"
	SourceBirthYear          = "birthYear"
	SourceBirthMonth         = "birthMonth"
	SourceBirthDay           = "birthDay"
	SourceExpiryYear         = "expiryYear"
	SourceExpiryMonth        = "expiryMonth"
	SourceExpiryDay          = "expiryDay"
	SourceSex                = "sex"
	SourceIssuingState       = "issuingState"
	SourceNationality        = "nationality"
	SourcePrimaryID          = "primaryIdentifier"
	SourceSecondaryID        = "secondaryIdentifier"
)

// Data is the normalized identity record produced from one scan.
type Data struct {
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	MRZText        string       `json:"mrz_text"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Sex            string       `json:"sex"`
	IssuingState   string       `json:"issuing_state"`
	Nationality    string       `json:"nationality"`
	Age            int          `json:"age"`
	DateOfBirth    Date         `json:"date_of_birth"`
	DateOfExpiry   Date         `json:"date_of_expiry"`
	InvalidFields  []FieldID    `json:"invalid_fields"`
}

// FieldInvalid reports whether a field failed engine validation.
func (d *Data) FieldInvalid(id FieldID) bool {
	for _, f := range d.InvalidFields {
		if f == id {
			return true
		}
	}
	return false
}

// FieldLabels is the static display-label table consumed by result views.
var FieldLabels = map[FieldID]string{
	FieldDocumentNumber: "Document Number",
	FieldFirstName:      "Given Name(s)",
	FieldLastName:       "Surname",
	FieldSex:            "Sex",
	FieldIssuingState:   "Issuing State",
	FieldNationality:    "Nationality",
	FieldDateOfBirth:    "Date of Birth",
	FieldDateOfExpiry:   "Date of Expiry",
}

// DocumentTypeLabels maps format classes to display labels.
var DocumentTypeLabels = map[DocumentType]string{
	TD1:      "ID Card (TD1)",
	TD2:      "ID Card (TD2)",
	Passport: "Passport (TD3)",
}
