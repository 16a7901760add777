package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// OutputOptions 输出目标配置
type OutputOptions struct {
	// 输出类型：console, file
	Type string `cfg:"type" def:"console" validate:"omitempty,oneof=console file"`

	// 控制台目标：stdout, stderr
	Target string `cfg:"target" def:"stdout"`

	// 文件路径，Type 为 file 时必填
	Path string `cfg:"path"`
}

// NewWriterWithOptions 根据配置创建输出器，默认输出到标准输出
func NewWriterWithOptions(options *OutputOptions) (Writer, error) {
	if options == nil {
		options = &OutputOptions{}
	}

	switch options.Type {
	case "", "console":
		return NewConsoleWriterWithOptions(options.Target)
	case "file":
		return NewFileWriterWithOptions(options.Path)
	default:
		return nil, errors.Errorf("unsupported output type [%s]", options.Type)
	}
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	writer io.Writer
}

func NewConsoleWriterWithOptions(target string) (*ConsoleWriter, error) {
	var w io.Writer
	switch target {
	case "stderr":
		w = os.Stderr
	case "stdout", "":
		w = os.Stdout
	default:
		return nil, errors.Errorf("unsupported console target [%s]", target)
	}
	return &ConsoleWriter{writer: w}, nil
}

func (c *ConsoleWriter) Write(p []byte) (n int, err error) {
	return c.writer.Write(p)
}

func (c *ConsoleWriter) Close() error {
	return nil
}

// FileWriter 文件输出器
type FileWriter struct {
	file *os.File
	mu   sync.Mutex
}

func NewFileWriterWithOptions(path string) (*FileWriter, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithMessagef(err, "os.MkdirAll failed. dir: [%s]", filepath.Dir(path))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithMessagef(err, "os.OpenFile failed. path: [%s]", path)
	}

	return &FileWriter{file: file}, nil
}

func (f *FileWriter) Write(p []byte) (n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, errors.New("file is closed")
	}
	return f.file.Write(p)
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil {
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}
