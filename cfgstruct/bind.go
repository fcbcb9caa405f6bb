// Package cfgstruct binds configuration structs to pflag flag sets using
// the help, default, devDefault and releaseDefault struct tags.
package cfgstruct

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// BindOpt 绑定选项
type BindOpt struct {
	isDev *bool
	vars  map[string]string
}

// ConfDir 设置 $CONFDIR 变量
func ConfDir(path string) BindOpt {
	return ConfigVar("CONFDIR", os.ExpandEnv(path))
}

// RootDir 设置 $ROOT 变量
func RootDir(path string) BindOpt {
	return ConfigVar("ROOT", os.ExpandEnv(path))
}

// ConfigVar 默认值中 $name 会被替换为 val
func ConfigVar(name, val string) BindOpt {
	return BindOpt{vars: map[string]string{name: val}}
}

// UseDevDefaults 优先使用 devDefault 标签
func UseDevDefaults() BindOpt {
	dev := true
	return BindOpt{isDev: &dev}
}

// UseReleaseDefaults 优先使用 releaseDefault 标签
func UseReleaseDefaults() BindOpt {
	dev := false
	return BindOpt{isDev: &dev}
}

// Bind 为 config 的每个字段注册 flag，config 必须是结构体指针。
// 嵌套结构体的 flag 名称用 "." 连接，字段名转为 kebab-case。
func Bind(flags *pflag.FlagSet, config interface{}, opts ...BindOpt) {
	isDev := false
	vars := map[string]string{}
	for _, opt := range opts {
		if opt.isDev != nil {
			isDev = *opt.isDev
		}
		for k, v := range opt.vars {
			vars[k] = v
		}
	}
	ptr := reflect.ValueOf(config)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("invalid config type: %#v. Expecting pointer to struct.", config))
	}
	b := &binder{flags: flags, isDev: isDev, vars: vars}
	b.bindStruct("", ptr.Elem())
}

type binder struct {
	flags *pflag.FlagSet
	isDev bool
	vars  map[string]string
}

var durationType = reflect.TypeOf(time.Duration(0))

func (b *binder) bindStruct(prefix string, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("internal") == "true" {
			continue
		}
		name := FlagName(field.Name)
		if prefix != "" {
			name = prefix + "." + name
		}
		fv := v.Field(i)
		if field.Type.Kind() == reflect.Struct {
			b.bindStruct(name, fv)
			continue
		}
		b.bindField(name, field, fv)
	}
}

func (b *binder) bindField(name string, field reflect.StructField, fv reflect.Value) {
	help := field.Tag.Get("help")
	def := b.expand(b.defaultValue(field))
	ptr := fv.Addr().Interface()
	var err error
	switch {
	case field.Type == durationType:
		var d time.Duration
		d, err = cast.ToDurationE(def)
		b.flags.DurationVar(ptr.(*time.Duration), name, d, help)
	case field.Type.Kind() == reflect.String:
		b.flags.StringVar(fv.Addr().Convert(reflect.TypeOf((*string)(nil))).Interface().(*string), name, def, help)
	case field.Type.Kind() == reflect.Bool:
		var v bool
		v, err = cast.ToBoolE(def)
		b.flags.BoolVar(ptr.(*bool), name, v, help)
	case field.Type.Kind() == reflect.Int:
		var v int
		v, err = cast.ToIntE(def)
		b.flags.IntVar(ptr.(*int), name, v, help)
	case field.Type.Kind() == reflect.Int32:
		var v int32
		v, err = cast.ToInt32E(def)
		b.flags.Int32Var(ptr.(*int32), name, v, help)
	case field.Type.Kind() == reflect.Int64:
		var v int64
		v, err = cast.ToInt64E(def)
		b.flags.Int64Var(ptr.(*int64), name, v, help)
	case field.Type.Kind() == reflect.Uint:
		var v uint
		v, err = cast.ToUintE(def)
		b.flags.UintVar(ptr.(*uint), name, v, help)
	case field.Type.Kind() == reflect.Float64:
		var v float64
		v, err = cast.ToFloat64E(def)
		b.flags.Float64Var(ptr.(*float64), name, v, help)
	case field.Type == reflect.TypeOf([]string(nil)):
		var v []string
		if def != "" {
			v = strings.Split(def, ",")
		}
		b.flags.StringSliceVar(ptr.(*[]string), name, v, help)
	default:
		panic(fmt.Sprintf("invalid field type: %s for flag %s", field.Type, name))
	}
	if err != nil {
		panic(fmt.Sprintf("invalid default value %q for flag %s: %v", def, name, err))
	}
}

func (b *binder) defaultValue(field reflect.StructField) string {
	if b.isDev {
		if v, ok := field.Tag.Lookup("devDefault"); ok {
			return v
		}
	} else if v, ok := field.Tag.Lookup("releaseDefault"); ok {
		return v
	}
	return field.Tag.Get("default")
}

// expand 替换 $VAR，未设置的变量使用环境变量
func (b *binder) expand(s string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := b.vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// FlagName 字段名转 flag 名，例如 MaxIdleConn -> max-idle-conn，HTTPAddr -> http-addr
func FlagName(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('-')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
