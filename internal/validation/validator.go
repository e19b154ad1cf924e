package validation

import "github.com/go-playground/validator/v10"

// New returns a validator with the roster tags registered: cnic, phone,
// ledgerdate, area and role.
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

// Register adds the roster tags to an existing validator.
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("cnic", func(fl validator.FieldLevel) bool {
		return ValidNationalID(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("ledgerdate", func(fl validator.FieldLevel) bool {
		return ValidateDate(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("area", func(fl validator.FieldLevel) bool {
		return ValidArea(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return ValidRole(fl.Field().String())
	})
}
