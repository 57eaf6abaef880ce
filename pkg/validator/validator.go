// pkg/validator/validator.go
package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// 使用 JSON 标签名作为字段名
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 注册自定义验证规则
	registerCustomValidators()
}

func registerCustomValidators() {
	// 分类名称：去掉空白后非空，且不能包含路径分隔符
	validate.RegisterValidation("categoryname", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return name != "" && !strings.Contains(name, "/")
	})

	validate.RegisterValidation("teamrole", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "owner", "admin", "member":
			return true
		}
		return false
	})
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Messages flattens validation errors into field -> tag, for the errors
// part of an API response.
func Messages(err error) map[string]string {
	out := map[string]string{}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range errs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func GetValidator() *validator.Validate {
	return validate
}
