package service

// ValidationError reports a malformed or incomplete request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a missing cart, product or cart line.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

var (
	ErrProductNotFound = &NotFoundError{Msg: "Product not found"}
	ErrCartNotFound    = &NotFoundError{Msg: "Cart not found"}
	ErrItemNotInCart   = &NotFoundError{Msg: "Product not found in cart"}

	ErrProductAndQuantityRequired = &ValidationError{Msg: "Product ID and quantity are required"}
	ErrProductIDRequired          = &ValidationError{Msg: "Product ID is required"}
	ErrInvalidQuantity            = &ValidationError{Msg: "Quantity must be between 1 and 99"}
	ErrTitleRequired              = &ValidationError{Msg: "Product title is required"}
	ErrInvalidPrice               = &ValidationError{Msg: "Product price must be a non-negative number"}
)
