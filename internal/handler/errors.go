package handler

import (
	"errors"
	"net/http"

	"github.com/dinein-pos/api/internal/service"
)

var notFoundErrors = []error{
	service.ErrSessionNotFound,
	service.ErrTableNotFound,
	service.ErrOrderNotFound,
	service.ErrOrderItemNotFound,
	service.ErrPaymentNotFound,
	service.ErrBillSplitNotFound,
}

var validationErrors = []error{
	service.ErrEmptyItems,
	service.ErrInvalidQuantity,
	service.ErrInvalidMenuItemID,
	service.ErrMenuItemNotFound,
	service.ErrMenuItemUnavailable,
	service.ErrInvalidSelectionID,
	service.ErrInvalidOptionID,
	service.ErrSelectionMismatch,
	service.ErrDuplicateSelection,
	service.ErrOptionMismatch,
	service.ErrOptionUnavailable,
	service.ErrTooManyOptions,
	service.ErrRequiredSelection,
	service.ErrPriceMismatch,
	service.ErrInvalidTotal,
	service.ErrTotalMismatch,
	service.ErrInvalidSessionID,
	service.ErrInvalidTableID,
	service.ErrInvalidOrderItemID,
	service.ErrInvalidAction,
	service.ErrInvalidPartySize,
	service.ErrInvalidSessionStatus,
	service.ErrInvalidPaymentMethod,
	service.ErrInvalidAmount,
	service.ErrInvalidFinalAmount,
	service.ErrFinalAmountMismatch,
	service.ErrInsufficientReceived,
	service.ErrInvalidPaymentAmount,
	service.ErrExceedsRemaining,
	service.ErrInvalidSplitType,
	service.ErrEmptySplits,
	service.ErrInvalidSplitAmount,
	service.ErrNothingToSplit,
	service.ErrSplitSumMismatch,
	service.ErrInvalidOrderID,
}

// stateErrors are rejected requests against an entity in the wrong status.
var stateErrors = []error{
	service.ErrSessionClosed,
	service.ErrSessionCompleted,
	service.ErrSessionHasDependents,
	service.ErrOrderNotEditable,
	service.ErrOrderNotDeletable,
	service.ErrInvalidTransition,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool        { return isAny(err, notFoundErrors) }
func isValidationError(err error) bool { return isAny(err, validationErrors) }
func isStateConflict(err error) bool   { return isAny(err, stateErrors) }

// writeServiceError maps a service error to its HTTP response. Unknown
// errors are logged under op and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case isValidationError(err), isStateConflict(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeInternal(w, op, err)
	}
}
