package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Icon is the avatar category stored for an employee.
type Icon string

const (
	IconMale    Icon = "male"
	IconFemale  Icon = "female"
	IconUnknown Icon = "unknown"
)

// LocalizedString holds the English and Persian variants of a directory field.
type LocalizedString struct {
	En Text `json:"en"`
	Fa Text `json:"fa"`
}

// Text is a JSON string that also tolerates numbers and null.
// Numbers keep their literal JSON form, null becomes an empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode text: %w", err)
		}
		*t = Text(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", strings.TrimSpace(string(data)))
	}
	*t = Text(num.String())

	return nil
}

// EmployeeRecord is one element of the input JSON array.
type EmployeeRecord struct {
	ID         *int64          `json:"id"`
	Name       LocalizedString `json:"name"`
	Title      LocalizedString `json:"title"`
	Department LocalizedString `json:"department"`
	Extension  Text            `json:"extension"`
	Mobile     Text            `json:"mobile"`
	Email      Text            `json:"email"`
	Photo      Text            `json:"photo"`
}

// Employee represents a row of the employees table.
type Employee struct {
	ID        int64  `json:"id"`
	NameEn    string `json:"name_en"`
	NameFa    string `json:"name_fa"`
	TitleEn   string `json:"title_en"`
	TitleFa   string `json:"title_fa"`
	DeptEn    string `json:"dept_en"`
	DeptFa    string `json:"dept_fa"`
	Extension string `json:"extension"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email"`
	Photo     string `json:"photo"`
	Icon      Icon   `json:"icon"`
	Visible   bool   `json:"visible"`
}
