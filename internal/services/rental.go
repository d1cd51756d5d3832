package services

import (
	"fmt"
	"strings"
	"time"

	"donation-api/internal/apperrors"
)

const dateOnly = "2006-01-02"

// ParseDate accepts RFC3339 timestamps and YYYY-MM-DD dates, returning UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t.UTC(), nil
}

// parseRentalPeriod parses a rental start and return-due date. Due must be strictly after start.
func parseRentalPeriod(startRaw, dueRaw string) (*time.Time, *time.Time, error) {
	var missing []string
	if strings.TrimSpace(startRaw) == "" {
		missing = append(missing, "rentalDetails.startDate")
	}
	if strings.TrimSpace(dueRaw) == "" {
		missing = append(missing, "rentalDetails.returnDueDate")
	}
	if len(missing) > 0 {
		return nil, nil, apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
			"rental transactions require startDate and returnDueDate",
			map[string]string{"fields": strings.Join(missing, ",")})
	}

	start, err := ParseDate(startRaw)
	if err != nil {
		return nil, nil, invalidDate("rentalDetails.startDate", startRaw)
	}
	due, err := ParseDate(dueRaw)
	if err != nil {
		return nil, nil, invalidDate("rentalDetails.returnDueDate", dueRaw)
	}
	if !due.After(start) {
		return nil, nil, apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
			"returnDueDate must be after startDate",
			map[string]string{
				"startDate":     start.Format(time.RFC3339),
				"returnDueDate": due.Format(time.RFC3339),
			})
	}
	return &start, &due, nil
}

func invalidDate(field, raw string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
		fmt.Sprintf("%s is not a valid date: %q", field, raw),
		map[string]string{"field": field, "value": raw})
}
