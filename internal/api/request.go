package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"donation-api/internal/apperrors"
	"donation-api/internal/models"
	"donation-api/internal/services"
)

// payload is a raw JSON object whose fields may arrive under several names.
// Alternate names are resolved once here so the engine sees a single shape.
type payload map[string]json.RawMessage

func (p payload) lookup(keys ...string) (json.RawMessage, string, bool) {
	for _, key := range keys {
		raw, ok := p[key]
		if ok && !isNull(raw) {
			return raw, key, true
		}
	}
	return nil, "", false
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func badField(field, reason string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation,
		fmt.Sprintf("%s: %s", field, reason),
		map[string]string{"field": field})
}

// ref reads an identifier given as a number, a numeric string, or a populated
// object carrying "id" or "_id".
func (p payload) ref(keys ...string) (*uint, error) {
	raw, key, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	id, err := parseRef(raw)
	if err != nil {
		return nil, badField(key, err.Error())
	}
	return &id, nil
}

func parseRef(raw json.RawMessage) (uint, error) {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return toID(n.String())
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return toID(strings.TrimSpace(s))
	}

	var obj payload
	if err := json.Unmarshal(raw, &obj); err == nil {
		if inner, _, ok := obj.lookup("id", "_id", "ID"); ok {
			return parseRef(inner)
		}
	}
	return 0, fmt.Errorf("must be a numeric identifier")
}

func toID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("must be a positive numeric identifier")
	}
	return uint(id), nil
}

func (p payload) str(keys ...string) (*string, error) {
	raw, key, ok := p.lookup(keys...)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, badField(key, "must be a string")
	}
	return &s, nil
}

func (p payload) integer(keys ...string) (int, error) {
	raw, key, ok := p.lookup(keys...)
	if !ok {
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, badField(key, "must be an integer")
		}
		if n, err = strconv.Atoi(strings.TrimSpace(s)); err != nil {
			return 0, badField(key, "must be an integer")
		}
	}
	return n, nil
}

// items returns nil when no item list was supplied and an empty slice for [].
func (p payload) items() ([]services.ItemInput, error) {
	raw, key, ok := p.lookup("items")
	if !ok {
		return nil, nil
	}
	var rows []payload
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, badField(key, "must be a list of items")
	}

	items := make([]services.ItemInput, 0, len(rows))
	for i, row := range rows {
		equipment, err := row.ref("equipment", "equipmentId", "equipment_id")
		if err != nil {
			return nil, badField(fmt.Sprintf("items[%d].equipment", i), "must be a numeric identifier")
		}
		quantity, err := row.integer("quantity")
		if err != nil {
			return nil, badField(fmt.Sprintf("items[%d].quantity", i), "must be an integer")
		}
		condition, err := row.str("condition")
		if err != nil {
			return nil, badField(fmt.Sprintf("items[%d].condition", i), "must be a string")
		}
		notes, err := row.str("notes")
		if err != nil {
			return nil, badField(fmt.Sprintf("items[%d].notes", i), "must be a string")
		}

		item := services.ItemInput{Quantity: quantity}
		if equipment != nil {
			item.EquipmentID = *equipment
		}
		if condition != nil {
			item.Condition = *condition
		}
		if notes != nil {
			item.Notes = *notes
		}
		items = append(items, item)
	}
	return items, nil
}

// rental accepts rentalDetails{startDate, returnDueDate, returnedDate} or the
// legacy rentalDates list, either ["start", "due"] or [{startDate, returnDueDate}].
func (p payload) rental() (*services.RentalInput, error) {
	if raw, key, ok := p.lookup("rentalDetails", "rental_details"); ok {
		var details payload
		if err := json.Unmarshal(raw, &details); err != nil {
			return nil, badField(key, "must be an object")
		}
		return details.rentalFields()
	}

	raw, key, ok := p.lookup("rentalDates", "rental_dates")
	if !ok {
		return nil, nil
	}
	var dates []string
	if err := json.Unmarshal(raw, &dates); err == nil {
		in := &services.RentalInput{}
		if len(dates) > 0 {
			in.StartDate = dates[0]
		}
		if len(dates) > 1 {
			in.ReturnDueDate = dates[1]
		}
		return in, nil
	}
	var objects []payload
	if err := json.Unmarshal(raw, &objects); err != nil || len(objects) == 0 {
		return nil, badField(key, "must be a list of dates")
	}
	return objects[0].rentalFields()
}

func (p payload) rentalFields() (*services.RentalInput, error) {
	in := &services.RentalInput{}
	fields := []struct {
		dest *string
		keys []string
	}{
		{&in.StartDate, []string{"startDate", "start_date"}},
		{&in.ReturnDueDate, []string{"returnDueDate", "return_due_date", "endDate", "end_date"}},
		{&in.ReturnedDate, []string{"returnedDate", "returned_date"}},
	}
	for _, f := range fields {
		v, err := p.str(f.keys...)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*f.dest = *v
		}
	}
	return in, nil
}

// decodeCreate normalizes a creation body.
func decodeCreate(p payload) (services.CreateInput, error) {
	var in services.CreateInput

	provider, err := p.ref("provider", "providerId", "provider_id")
	if err != nil {
		return in, err
	}
	recipient, err := p.ref("recipient", "recipientId", "recipient_id")
	if err != nil {
		return in, err
	}
	if provider != nil {
		in.ProviderID = *provider
	}
	if recipient != nil {
		in.RecipientID = *recipient
	}

	strs := []struct {
		apply func(string)
		keys  []string
	}{
		{func(s string) { in.ProviderKind = models.ProviderKind(s) }, []string{"providerKind", "provider_kind", "providerType", "provider_type"}},
		{func(s string) { in.TransactionKind = models.TransactionKind(s) }, []string{"transactionKind", "transaction_kind", "transactionType", "transaction_type"}},
		{func(s string) { in.Notes = s }, []string{"notes", "additionalNotes", "additional_notes"}},
		{func(s string) { in.Terms = s }, []string{"terms"}},
		{func(s string) { in.EquipmentRequestID = s }, []string{"equipmentRequest", "equipmentRequestId", "equipment_request_id"}},
		{func(s string) { in.CreatedBy = s }, []string{"createdBy", "created_by"}},
	}
	for _, f := range strs {
		v, err := p.str(f.keys...)
		if err != nil {
			return in, err
		}
		if v != nil {
			f.apply(strings.TrimSpace(*v))
		}
	}

	if in.Items, err = p.items(); err != nil {
		return in, err
	}
	if in.Rental, err = p.rental(); err != nil {
		return in, err
	}
	return in, nil
}

// decodeUpdate normalizes a partial update body.
func decodeUpdate(p payload) (services.UpdateInput, error) {
	var in services.UpdateInput
	var err error

	if in.ProviderID, err = p.ref("provider", "providerId", "provider_id"); err != nil {
		return in, err
	}
	if in.RecipientID, err = p.ref("recipient", "recipientId", "recipient_id"); err != nil {
		return in, err
	}

	if v, err := p.str("providerKind", "provider_kind", "providerType", "provider_type"); err != nil {
		return in, err
	} else if v != nil {
		kind := models.ProviderKind(strings.TrimSpace(*v))
		in.ProviderKind = &kind
	}
	if v, err := p.str("transactionKind", "transaction_kind", "transactionType", "transaction_type"); err != nil {
		return in, err
	} else if v != nil {
		kind := models.TransactionKind(strings.TrimSpace(*v))
		in.TransactionKind = &kind
	}
	if v, err := p.str("status"); err != nil {
		return in, err
	} else if v != nil {
		status := models.TransactionStatus(strings.ToLower(strings.TrimSpace(*v)))
		in.Status = &status
	}

	if in.ApprovedBy, err = p.str("approvedBy", "approved_by"); err != nil {
		return in, err
	}
	if in.Notes, err = p.str("notes", "additionalNotes", "additional_notes"); err != nil {
		return in, err
	}
	if in.Terms, err = p.str("terms"); err != nil {
		return in, err
	}
	if v, err := p.str("changedBy", "changed_by"); err != nil {
		return in, err
	} else if v != nil {
		in.ChangedBy = *v
	}
	if v, err := p.str("statusNote", "status_note"); err != nil {
		return in, err
	} else if v != nil {
		in.Note = *v
	}

	if in.Items, err = p.items(); err != nil {
		return in, err
	}
	if in.Rental, err = p.rental(); err != nil {
		return in, err
	}
	return in, nil
}
