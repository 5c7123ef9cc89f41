package validation

import (
	validator "github.com/go-playground/validator/v10"

	"github.com/Proton-105/users-backend/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type stringField struct {
	name  string
	value domain.Optional[string]
}

func patchFields(p domain.UserPatch) []stringField {
	return []stringField{
		{name: "email", value: p.Email},
		{name: "first_name", value: p.FirstName},
		{name: "last_name", value: p.LastName},
		{name: "avatar", value: p.Avatar},
	}
}

// ValidateCreate checks a decoded creation body. Every field must be present
// and non-null, email must be an address and avatar an http(s) URL.
func ValidateCreate(in domain.UserPatch) (domain.UserCreate, error) {
	var errs Errors
	for _, f := range patchFields(in) {
		switch {
		case !f.value.Set:
			errs = append(errs, FieldError{Type: TypeMissing, Loc: Body(f.name), Msg: MsgFieldRequired, Input: nil})
		case f.value.Null:
			errs = append(errs, FieldError{Type: TypeStringType, Loc: Body(f.name), Msg: MsgStringType, Input: nil})
		default:
			if fe := checkFormat(f.name, f.value.Value); fe != nil {
				errs = append(errs, *fe)
			}
		}
	}
	if len(errs) > 0 {
		return domain.UserCreate{}, errs
	}

	return domain.UserCreate{
		Email:     in.Email.Value,
		FirstName: in.FirstName.Value,
		LastName:  in.LastName.Value,
		Avatar:    in.Avatar.Value,
	}, nil
}

// ValidatePatch checks a partial update. Absent fields are fine, explicit
// nulls are not.
func ValidatePatch(in domain.UserPatch) error {
	var errs Errors
	for _, f := range patchFields(in) {
		if !f.value.Set {
			continue
		}
		if f.value.Null {
			errs = append(errs, FieldError{Type: TypeStringType, Loc: Body(f.name), Msg: MsgStringType, Input: nil})
			continue
		}
		if fe := checkFormat(f.name, f.value.Value); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs.OrNil()
}

// ValidateUser checks the formats of an already assembled creation payload.
func ValidateUser(in domain.UserCreate) error {
	var errs Errors
	if fe := checkFormat("email", in.Email); fe != nil {
		errs = append(errs, *fe)
	}
	if fe := checkFormat("avatar", in.Avatar); fe != nil {
		errs = append(errs, *fe)
	}
	return errs.OrNil()
}

func checkFormat(field, value string) *FieldError {
	switch field {
	case "email":
		if validate.Var(value, "required,email") != nil {
			return &FieldError{Type: TypeValueError, Loc: Body(field), Msg: MsgInvalidEmail, Input: value}
		}
	case "avatar":
		if validate.Var(value, "required,http_url") != nil {
			return &FieldError{Type: TypeURLParsing, Loc: Body(field), Msg: MsgInvalidURL, Input: value}
		}
	}
	return nil
}
