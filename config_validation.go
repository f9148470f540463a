package idea

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by configuration and command validation. A Validate
// caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "baudrate", func(fl validator.FieldLevel) bool {
		return BaudRate(fl.Field().Int()).Valid()
	})
	mustRegister(v, "stepmode", func(fl validator.FieldLevel) bool {
		return StepMode(fl.Field().Int()).Valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("idea: registering %s validation: %v", tag, err))
	}
}

// ValidateConfig validates serial port configuration parameters
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	if fe, ok := firstFieldError(err); ok {
		if fe.Field() == "BaudRate" {
			return fmt.Errorf("invalid baud rate %v, must be one of: %v", fe.Value(), supportedBaudRates)
		}
		return fmt.Errorf("invalid %s: %v fails %s", fe.Field(), fe.Value(), constraint(fe))
	}
	return err
}

// validateCommand runs the struct tag checks of a typed command.
func validateCommand(op Opcode, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	if fe, ok := firstFieldError(err); ok {
		return &EncodingError{
			Command: op,
			Field:   fe.Field(),
			Err:     fmt.Errorf("%v fails %s", fe.Value(), constraint(fe)),
		}
	}
	return &EncodingError{Command: op, Err: err}
}

func firstFieldError(err error) (validator.FieldError, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0], true
	}
	return nil, false
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
