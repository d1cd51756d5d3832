package apperrors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeValidation          Code = "VALIDATION_FAILED"
	CodeMissingFields       Code = "MISSING_REQUIRED_FIELDS"
	CodeInvalidProviderKind Code = "INVALID_PROVIDER_KIND"
	CodeInvalidKind         Code = "INVALID_TRANSACTION_KIND"
	CodeInvalidItem         Code = "INVALID_ITEM"
	CodeInvalidRentalDates  Code = "INVALID_RENTAL_DATES"
	CodeSameSchool          Code = "SAME_SCHOOL_TRANSACTION"

	// Lookup errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeProviderNotFound    Code = "PROVIDER_NOT_FOUND"
	CodeRecipientNotFound   Code = "RECIPIENT_NOT_FOUND"
	CodeEquipmentNotFound   Code = "EQUIPMENT_NOT_FOUND"

	// Status transition errors
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeApproverRequired        Code = "APPROVER_REQUIRED"
	CodeReturnRequiresRental    Code = "RETURN_REQUIRES_RENTAL"

	// Conflict errors
	CodeOnlyPendingDeletable Code = "ONLY_PENDING_DELETABLE"
	CodeImmutableField       Code = "IMMUTABLE_FIELD"
	CodeNotEditable          Code = "TRANSACTION_NOT_EDITABLE"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"

	// Storage errors
	CodeStoreFailure Code = "STORE_FAILURE"
)

// Kind groups codes into the outcomes reported to callers.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindStateTransition Kind = "state_transition"
	KindConflict        Kind = "conflict"
	KindStore           Kind = "store"
)

var codeKinds = map[Code]Kind{
	CodeValidation:          KindValidation,
	CodeMissingFields:       KindValidation,
	CodeInvalidProviderKind: KindValidation,
	CodeInvalidKind:         KindValidation,
	CodeInvalidItem:         KindValidation,
	CodeInvalidRentalDates:  KindValidation,
	CodeSameSchool:          KindValidation,

	CodeNotFound:            KindNotFound,
	CodeTransactionNotFound: KindNotFound,
	CodeProviderNotFound:    KindNotFound,
	CodeRecipientNotFound:   KindNotFound,
	CodeEquipmentNotFound:   KindNotFound,

	CodeInvalidStatusTransition: KindStateTransition,
	CodeApproverRequired:        KindStateTransition,
	CodeReturnRequiresRental:    KindStateTransition,

	CodeOnlyPendingDeletable: KindConflict,
	CodeImmutableField:       KindConflict,
	CodeNotEditable:          KindConflict,
	CodeAlreadyExists:        KindConflict,

	CodeStoreFailure: KindStore,
	CodeUnknown:      KindStore,
}

// Kind returns the outcome group of the code. Unregistered codes are store failures.
func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindStore
}
