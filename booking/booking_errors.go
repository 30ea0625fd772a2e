package booking

import (
	"errors"

	"github.com/Almirante-Ming/Rose/validate"
)

var ErrBookingNotFound = errors.New("booking not found")

var ErrInvalidDateTime = errors.New("invalid date or time")

type ValidationError = validate.Error
