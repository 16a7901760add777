package cfg

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Decode 按格式将原始数据解码为嵌套映射
// 支持的格式：json, yaml, toml, ini, env
func Decode(data []byte, format string) (map[string]any, error) {
	switch strings.ToLower(format) {
	case "json":
		var result map[string]any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, errors.WithMessage(err, "json.Unmarshal failed")
		}
		return result, nil

	case "yaml", "yml":
		var result map[string]any
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, errors.WithMessage(err, "yaml.Unmarshal failed")
		}
		return result, nil

	case "toml":
		var result map[string]any
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, errors.WithMessage(err, "toml.Unmarshal failed")
		}
		return result, nil

	case "ini":
		return decodeIni(data)

	case "env":
		return decodeEnv(data)

	default:
		return nil, errors.Errorf("unsupported format [%s]", format)
	}
}

// FormatOf 根据文件扩展名推断配置格式
func FormatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "yml" {
		return "yaml"
	}
	return ext
}

// decodeIni 将 INI 数据解码为嵌套映射，分组作为一层键
func decodeIni(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys: true,
	}, data)
	if err != nil {
		return nil, errors.WithMessage(err, "ini.LoadSources failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			nested := map[string]any{}
			result[section.Name()] = nested
			target = nested
		}
		for _, key := range section.Keys() {
			target[key.Name()] = key.Value()
		}
	}
	return result, nil
}

// decodeEnv 将 .env 数据解码为嵌套映射，键按下划线逐级拆分，
// 比如 DATABASE_DRIVER=sqlite3 解码为 {database: {driver: sqlite3}}。
// 支持 # 注释、空行和引号包围的值
func decodeEnv(data []byte) (map[string]any, error) {
	result := map[string]any{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx == -1 {
			return nil, errors.Errorf("missing '=' separator at line %d", lineNum)
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			return nil, errors.Errorf("empty key at line %d", lineNum)
		}

		target := result
		parts := strings.Split(strings.ToLower(key), "_")
		for _, part := range parts[:len(parts)-1] {
			nested, ok := target[part].(map[string]any)
			if !ok {
				nested = map[string]any{}
				target[part] = nested
			}
			target = nested
		}
		target[parts[len(parts)-1]] = unquoteEnvValue(strings.TrimSpace(line[idx+1:]))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessage(err, "scan env data failed")
	}
	return result, nil
}

func unquoteEnvValue(value string) string {
	if len(value) >= 2 {
		if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
			(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
			return value[1 : len(value)-1]
		}
	}
	return value
}
