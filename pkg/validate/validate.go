package validate

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"librarydesk/pkg/models"
)

// FormKey holds form-level messages that are not tied to a single field.
const FormKey = "form"

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fe[k])
	}
	return strings.Join(parts, "; ")
}

var v = validator.New(validator.WithRequiredStructEnabled())

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterForm struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

func (f RegisterForm) Request() models.RegisterRequest {
	return models.RegisterRequest{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Password:  f.Password,
	}
}

// Login reports a single form-level message, like the sign-in screen does.
func Login(f LoginForm) error {
	f.Email = strings.TrimSpace(f.Email)
	if f.Email == "" || f.Password == "" {
		return FieldErrors{FormKey: "Email and password are required"}
	}
	if err := v.Struct(f); err != nil {
		return FieldErrors{FormKey: "Please enter a valid email address"}
	}
	return nil
}

var registerMessages = map[string]map[string]string{
	"FirstName":       {"required": "First Name is required"},
	"LastName":        {"required": "Last Name is required"},
	"Email":           {"required": "Email is required", "email": "Email is not valid"},
	"Phone":           {"required": "Phone number is required"},
	"Password":        {"required": "Password is required", "min": "Password must be at least 6 characters"},
	"ConfirmPassword": {"eqfield": "Passwords do not match"},
}

var registerKeys = map[string]string{
	"FirstName":       "firstName",
	"LastName":        "lastName",
	"Email":           "email",
	"Phone":           "phone",
	"Password":        "password",
	"ConfirmPassword": "confirmPassword",
}

// Register checks every field and returns all failures at once.
func Register(f RegisterForm) error {
	matched := f.Password == f.ConfirmPassword
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	// a whitespace-only password counts as missing
	if strings.TrimSpace(f.Password) == "" {
		f.Password = ""
	}
	if matched {
		f.ConfirmPassword = f.Password
	}
	return registerStruct(f)
}

func registerStruct(f RegisterForm) error {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		key := registerKeys[fe.StructField()]
		if _, seen := out[key]; seen {
			continue
		}
		msg, ok := registerMessages[fe.StructField()][fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		out[key] = msg
	}
	return out
}
