package importer

import (
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/UnknownOlympus/mnemosyne/internal/parser"
)

// ToEmployee maps a validated record onto a table row. Every imported row is visible.
func ToEmployee(rec models.EmployeeRecord) models.Employee {
	var identifier int64
	if rec.ID != nil {
		identifier = *rec.ID
	}

	return models.Employee{
		ID:        identifier,
		NameEn:    string(rec.Name.En),
		NameFa:    string(rec.Name.Fa),
		TitleEn:   string(rec.Title.En),
		TitleFa:   string(rec.Title.Fa),
		DeptEn:    string(rec.Department.En),
		DeptFa:    string(rec.Department.Fa),
		Extension: string(rec.Extension),
		Mobile:    string(rec.Mobile),
		Email:     string(rec.Email),
		Photo:     string(rec.Photo),
		Icon:      parser.InferIcon(string(rec.Photo)),
		Visible:   true,
	}
}
