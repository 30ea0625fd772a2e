package directory

import "github.com/Almirante-Ming/Rose/validate"

type ValidationError = validate.Error
