package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category of a business rule failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION_ERROR"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindPreconditionFailed  ErrorKind = "PRECONDITION_FAILED"
	KindInvalidTransition   ErrorKind = "INVALID_TRANSITION"
	KindInsufficientStock   ErrorKind = "INSUFFICIENT_STOCK"
	KindEmptyCart           ErrorKind = "EMPTY_CART"
	KindCouponNotFound      ErrorKind = "COUPON_NOT_FOUND"
	KindCouponExpired       ErrorKind = "COUPON_EXPIRED"
	KindCouponNotApplicable ErrorKind = "COUPON_NOT_APPLICABLE"
	KindCouponBelowMinimum  ErrorKind = "COUPON_BELOW_MINIMUM"
	KindCouponUsageExceeded ErrorKind = "COUPON_USAGE_EXCEEDED"
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindForbidden           ErrorKind = "FORBIDDEN"
	KindConflict            ErrorKind = "CONFLICT"
)

// Error is a user-facing business error. Messages are Turkish because they are
// shown to shoppers as-is.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on kind so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a business error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetail returns a copy of the error carrying an extra detail entry.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Details: details}
}

// KindOf returns the kind of a business error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Common errors.
var (
	ErrEmptyCart         = NewError(KindEmptyCart, "Sepetiniz boş")
	ErrOrderNotFound     = NewError(KindNotFound, "Sipariş bulunamadı")
	ErrAddressNotFound   = NewError(KindNotFound, "Adres bulunamadı")
	ErrProductNotFound   = NewError(KindNotFound, "Ürün bulunamadı")
	ErrCategoryNotFound  = NewError(KindNotFound, "Kategori bulunamadı")
	ErrCouponNotFound    = NewError(KindCouponNotFound, "Geçersiz kupon kodu")
	ErrCouponExpired     = NewError(KindCouponExpired, "Kuponun süresi dolmuş")
	ErrCouponNotForYou   = NewError(KindCouponNotApplicable, "Bu kupon hesabınız için geçerli değil")
	ErrCouponUsedUp      = NewError(KindCouponUsageExceeded, "Kupon kullanım limiti dolmuş")
	ErrCouponCodeTaken   = NewError(KindConflict, "Bu kupon kodu zaten kullanılıyor")
	ErrUnauthorized      = NewError(KindUnauthorized, "Oturum açmanız gerekiyor")
	ErrForbidden         = NewError(KindForbidden, "Bu işlem için yetkiniz yok")
	ErrTrackingRequired  = NewError(KindPreconditionFailed, "Kargo takip numarası ve kargo firması zorunludur")
	ErrRefundWindowEnded = NewError(KindPreconditionFailed, "İade süresi dolmuş")
)

// CouponBelowMinimum reports the minimum purchase threshold in its message.
func CouponBelowMinimum(threshold string) *Error {
	return NewError(KindCouponBelowMinimum,
		fmt.Sprintf("Bu kupon için minimum sepet tutarı %s TL", threshold)).
		WithDetail("min_purchase", threshold)
}

// InsufficientStock names the product that cannot be supplied.
func InsufficientStock(productName string, available int) *Error {
	return NewError(KindInsufficientStock,
		fmt.Sprintf("%s için yeterli stok yok (kalan: %d)", productName, available)).
		WithDetail("product", productName).
		WithDetail("available", available)
}

// Validation builds a VALIDATION_ERROR with per-field messages.
func Validation(fields map[string]string) *Error {
	e := NewError(KindValidation, "Girilen bilgiler geçersiz")
	if len(fields) > 0 {
		e.Details = map[string]interface{}{"fields": fields}
	}
	return e
}
