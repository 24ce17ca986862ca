package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate row")
	ErrForeignKey        = errors.New("referenced row missing")
	ErrShapeMismatch     = errors.New("catalog result shape mismatch")
	ErrUnknownObjectType = errors.New("object type not in taxonomy")
	ErrUnknownCriterion  = errors.New("criterion not in taxonomy")
	ErrUnknownCategory   = errors.New("category not in taxonomy")
)
