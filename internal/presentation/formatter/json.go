package formatter

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
)

// JSONFormatter writes the whole result as indented JSON.
type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) Format(result *analyzer.Result) error {
	if result == nil {
		result = &analyzer.Result{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := f.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
