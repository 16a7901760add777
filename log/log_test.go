package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestNewSLogWithOptions(t *testing.T) {
	convey.Convey("测试日志器创建", t, func() {
		convey.Convey("默认配置", func() {
			logger, err := NewSLogWithOptions(nil)
			convey.So(err, convey.ShouldBeNil)
			logger.Info("hello", "key", "val")
		})

		convey.Convey("非法级别返回错误", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Level: "verbose"})
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("非法格式返回错误", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Format: "xml"})
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("非法输出类型返回错误", func() {
			_, err := NewSLogWithOptions(&SLogOptions{Output: OutputOptions{Type: "syslog"}})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestFileWriter(t *testing.T) {
	convey.Convey("测试文件输出", t, func() {
		path := filepath.Join(t.TempDir(), "logs", "app.log")

		logger, err := NewSLogWithOptions(&SLogOptions{
			Format: "json",
			Output: OutputOptions{Type: "file", Path: path},
			Fields: map[string]any{"service": "bex"},
		})
		convey.So(err, convey.ShouldBeNil)

		logger.Info("started", "port", 8080)
		logger.With("table", "items").Warn("slow query")
		convey.So(logger.Close(), convey.ShouldBeNil)

		data, err := os.ReadFile(path)
		convey.So(err, convey.ShouldBeNil)

		var record map[string]any
		convey.So(json.Unmarshal([]byte(firstLine(string(data))), &record), convey.ShouldBeNil)
		convey.So(record["msg"], convey.ShouldEqual, "started")
		convey.So(record["service"], convey.ShouldEqual, "bex")
	})
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func TestNop(t *testing.T) {
	convey.Convey("测试空日志器", t, func() {
		var logger Logger = NewNop()
		logger.Info("dropped")
		convey.So(logger.With("k", "v"), convey.ShouldEqual, logger)
		convey.So(logger.WithGroup("g"), convey.ShouldEqual, logger)
	})
}
