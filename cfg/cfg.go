package cfg

import (
	"os"

	"github.com/pkg/errors"

	"github.com/hatlonely/bex/validate"
)

// Load 从配置文件加载结构体配置
// 流程：按扩展名解码 -> 绑定字段 -> 填充默认值 -> validate tag 校验
func Load(path string, object any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithMessagef(err, "os.ReadFile failed. path: [%s]", path)
	}
	return LoadBytes(data, FormatOf(path), object)
}

// LoadBytes 从原始数据加载结构体配置
func LoadBytes(data []byte, format string, object any) error {
	values, err := Decode(data, format)
	if err != nil {
		return errors.WithMessagef(err, "cfg.Decode failed. format: [%s]", format)
	}
	if err := Bind(values, object); err != nil {
		return errors.WithMessage(err, "cfg.Bind failed")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "cfg.SetDefaults failed")
	}
	if es := validate.Struct(object); es != nil {
		return es
	}
	return nil
}
