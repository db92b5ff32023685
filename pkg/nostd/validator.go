package nostd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/labstack/echo/v4"
)

// CustomValidator echo请求参数校验器，错误信息翻译为中文
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化翻译器
func (cv *CustomValidator) TransInit() error {
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, ok := uni.GetTranslator("zh")
	if !ok {
		return fmt.Errorf("translator zh not found")
	}
	cv.trans = trans
	return zhTranslations.RegisterDefaultTranslations(cv.Validator, trans)
}

// Validate 校验请求结构体
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.Validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			messages := make([]string, 0, len(errs))
			for _, fe := range errs {
				messages = append(messages, fe.Translate(cv.trans))
			}
			return echo.NewHTTPError(http.StatusBadRequest, strings.Join(messages, "；"))
		}
		return err
	}
	return nil
}
