// Package rule 封装 go-playground/validator，注册配置校验用到的自定义规则与别名.
package rule

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// 别名规则.
const (
	AliasKVType    = "kv_type"
	AliasIndexType = "index_type"
	AliasRatio     = "ratio"
)

// 自定义规则.
const (
	TagLimitKey   = "limit_key"
	TagTrackerURL = "tracker_url"
)

var trackerSchemes = map[string]bool{"udp": true, "http": true, "https": true, "ws": true, "wss": true}

// initValidator 复用 gin 的 validator 引擎，字段名取 mapstructure 键.
func initValidator() {
	inst = nil

	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	registerBuiltins(inst)
}

func registerBuiltins(v *validator.Validate) {
	v.RegisterAlias(AliasKVType, "oneof=memory redis nats groupcache")
	v.RegisterAlias(AliasIndexType, "oneof=sqlite mongo")
	v.RegisterAlias(AliasRatio, "gte=0,lte=1")

	// 内置规则在包初始化时注册，tag 固定，不会失败
	_ = v.RegisterValidation(TagLimitKey, validLimitKey)
	_ = v.RegisterValidation(TagTrackerURL, validTrackerURL)
}

// validLimitKey 限流维度: 空、global、ip 或 header:<Name>.
func validLimitKey(fl validator.FieldLevel) bool {
	key := strings.ToLower(strings.TrimSpace(fl.Field().String()))

	switch key {
	case "", "global", "ip":
		return true
	}

	name, ok := strings.CutPrefix(key, "header:")

	return ok && strings.TrimSpace(name) != ""
}

// validTrackerURL 磁力链接中的 tracker 地址需带主机名与受支持的协议.
func validTrackerURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}

	return trackerSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// ValidationErrors 键为字段路径（mapstructure 键），值为失败的规则.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}

	return strings.Join(parts, "; ")
}

// Errors 把 validator 的错误整理为 ValidationErrors，非校验错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))

	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}

		if field == "" {
			field = "value"
		}

		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
		}

		out[field] = fmt.Sprintf("%s (got %v)", msg, fe.Value())
	}

	return out
}

// ValidateStruct 校验结构体，校验失败时返回 ValidationErrors.
func ValidateStruct(s any) error {
	lazyInit()

	return check(inst.Struct(s))
}

// ValidateVar 按规则校验单个变量，例如 ValidateVar(kvType, "kv_type").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return check(inst.Var(field, tag))
}

func check(err error) error {
	if err == nil {
		return nil
	}

	if verrs := Errors(err); verrs != nil {
		return verrs
	}

	return err
}
