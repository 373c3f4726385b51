package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stemsi/qbank-console/internal/model"
)

var (
	// trans is the singleton English translator for validation errors.
	trans ut.Translator

	standalone     *govalidator.Validate
	standaloneOnce sync.Once
)

func init() {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
}

// Setup makes Gin's binding use the same `validate`-tag engine as Struct,
// with JSON field names, English translations and the question-bank rules.
// Call once during application startup.
func Setup() {
	binding.Validator = ginValidator{}
}

// ginValidator adapts the shared engine to binding.StructValidator.
type ginValidator struct{}

func (ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return engine().Struct(v.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := (ginValidator{}).ValidateStruct(v.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ginValidator) Engine() any { return engine() }

// engine returns the shared validator instance.
func engine() *govalidator.Validate {
	standaloneOnce.Do(func() {
		standalone = govalidator.New(govalidator.WithRequiredStructEnabled())
		configure(standalone)
	})
	return standalone
}

func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	en_translations.RegisterDefaultTranslations(v, trans)

	registerEnum(v, "section_type", "{0} must be a valid section type", func(s string) bool {
		return model.SectionType(s).Valid()
	})
	registerEnum(v, "question_type", "{0} must be a valid question type", func(s string) bool {
		return model.QuestionType(s).Valid()
	})
	registerEnum(v, "difficulty", "{0} must be a valid difficulty level", func(s string) bool {
		return model.DifficultyLevel(s).Valid()
	})
}

func registerEnum(v *govalidator.Validate, tag, message string, valid func(string) bool) {
	_ = v.RegisterValidation(tag, func(fl govalidator.FieldLevel) bool {
		return valid(fl.Field().String())
	})
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// Struct validates s against its `validate` tags. It returns nil when s is
// valid, otherwise a map of JSON field name to message.
func Struct(s any) map[string]string {
	if err := engine().Struct(s); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// fieldPath drops the root struct name from the namespace so nested fields
// read "mcqOptions[0].optionText".
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
