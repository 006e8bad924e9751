package store

import "errors"

// Sentinel errors for common store error conditions.
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
	ErrPrincipalNotFound         = errors.New("principal not found")
	ErrPrincipalAlreadyExists    = errors.New("principal already exists")
	ErrStudentNotFound           = errors.New("student not found")
	ErrStudentAlreadyExists      = errors.New("student already exists")
	ErrClassNotFound             = errors.New("class not found")
	ErrClassAlreadyExists        = errors.New("class already exists")
	ErrGateNotFound              = errors.New("gate not found")
	ErrGateAlreadyExists         = errors.New("gate already exists")
	ErrCredentialNotFound        = errors.New("credential not found")
	ErrDismissalNotFound         = errors.New("dismissal not found")
	ErrDismissalAlreadyExists    = errors.New("dismissal already exists")
	ErrDismissalImmutable        = errors.New("dismissal is immutable")
)
