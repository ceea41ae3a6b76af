// Package domain classifies the errors billing components return.
package domain

import (
	"errors"

	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	paymentmethoddomain "github.com/smallbiznis/planbilling/internal/paymentmethod/domain"
	plandomain "github.com/smallbiznis/planbilling/internal/plan/domain"
)

var notFound = []error{
	plandomain.ErrPriceNotFound,
	plandomain.ErrPlanNotFound,
	plandomain.ErrTermNotFound,
	paymentmethoddomain.ErrMethodNotFound,
	membershipdomain.ErrMembershipNotFound,
	invoicedomain.ErrInvoiceNotFound,
	memberdomain.ErrMemberNotFound,
}

var duplicate = []error{
	paymentmethoddomain.ErrDuplicateMethod,
	membershipdomain.ErrAlreadySubscribed,
	plandomain.ErrDuplicatePlanCode,
	invoicedomain.ErrDuplicateInvoice,
}

// IsNotFound reports whether err names a missing record. These are never
// retried.
func IsNotFound(err error) bool {
	return matchesAny(err, notFound)
}

func IsDuplicate(err error) bool {
	return matchesAny(err, duplicate)
}

func matchesAny(err error, targets []error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
