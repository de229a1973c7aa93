// Package validation checks form input before it reaches the stores.
//
// Every Validate* function returns an Errors map keyed by form field
// ("email", "password", "name", "phone", "address", "coords", "photo").
// An empty map means the input is valid. Text fields are trimmed before
// checking; passwords are checked as typed.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPhotoSize is the largest accepted photo, in bytes.
const MaxPhotoSize = 1 << 20

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// Errors maps a form field to its message.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

// Photo describes a picked image file.
type Photo struct {
	MediaType string
	Size      int64
}

// ContactForm is the raw contact form. Nil coordinates mean no point was
// picked; a nil Photo means no file was chosen.
type ContactForm struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Lat     *float64
	Lng     *float64
	Photo   *Photo
}

type credentials struct {
	Email    string `json:"email" validate:"required,simpleemail"`
	Password string `json:"password" validate:"required"`
}

type registration struct {
	Email    string `json:"email" validate:"required,simpleemail"`
	Password string `json:"password" validate:"required,min=6"`
}

type photoMeta struct {
	MediaType string `json:"photo" validate:"imagetype"`
	Size      int64  `json:"photo" validate:"lte=1048576"`
}

type contact struct {
	Name    string     `json:"name" validate:"required"`
	Phone   string     `json:"phone" validate:"required,digits"`
	Email   string     `json:"email" validate:"required,simpleemail"`
	Address string     `json:"address" validate:"required"`
	Lat     *float64   `json:"coords" validate:"required,finite"`
	Lng     *float64   `json:"coords" validate:"required,finite"`
	Photo   *photoMeta `json:"photo" validate:"required"`
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "simpleemail", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	mustRegister(v, "imagetype", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), "image/")
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// ValidateRegister checks the registration form.
func ValidateRegister(email, password string) Errors {
	return check(registration{Email: strings.TrimSpace(email), Password: password})
}

// ValidateLogin checks the login form. Only presence of the password is required.
func ValidateLogin(email, password string) Errors {
	return check(credentials{Email: strings.TrimSpace(email), Password: password})
}

// ValidateContact checks the contact form. On edit the caller drops the
// "photo" key when no new file was picked.
func ValidateContact(f ContactForm) Errors {
	in := contact{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Email:   strings.TrimSpace(f.Email),
		Address: strings.TrimSpace(f.Address),
		Lat:     f.Lat,
		Lng:     f.Lng,
	}
	if f.Photo != nil {
		in.Photo = &photoMeta{MediaType: f.Photo.MediaType, Size: f.Photo.Size}
	}
	return check(in)
}

func check(s any) Errors {
	errs := Errors{}

	err := validate.Struct(s)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs
	}
	// Later failures on the same key win, so an oversized photo reports
	// its size even when its type is also wrong.
	for _, fe := range ve {
		errs[fe.Field()] = message(fe)
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "email":
		if fe.Tag() == "required" {
			return "email is required"
		}
		return "invalid email format"
	case "password":
		if fe.Tag() == "min" {
			return fmt.Sprintf("password must be at least %s characters", fe.Param())
		}
		return "password is required"
	case "name":
		return "name is required"
	case "phone":
		if fe.Tag() == "required" {
			return "phone is required"
		}
		return "phone must contain digits only"
	case "address":
		return "location is required (pick on map)"
	case "coords":
		return "invalid coordinates (pick on map)"
	case "photo":
		switch fe.Tag() {
		case "required":
			return "photo is required"
		case "imagetype":
			return "file must be an image"
		default:
			return "image must be at most 1MB"
		}
	default:
		return fmt.Sprintf("%s failed validation (%s)", fe.Field(), fe.Tag())
	}
}
