package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

func init() {
	cobra.MousetrapHelpText = "This is a command line tool.\n\n" +
		"This needs to be run from a Command Prompt.\n"

	// Figure out the executable name.
	exe, err := os.Executable()
	if err == nil {
		cobra.MousetrapHelpText += fmt.Sprintf(
			"Try running \"%s help\" for more information\n", exe)
	}
}

// fileExists checks whether file exists, handle error correctly if it doesn't.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("failed to check for file existence", zap.String("path", path), zap.Error(err))
		}
		return false
	}
	return true
}

// SaveConfig 把命令当前的 flag 值写成 yaml 配置文件，嵌套配置按 "." 展开
func SaveConfig(cmd *cobra.Command, outfile string, skip ...string) error {
	skipped := map[string]bool{"help": true, "config-dir": true}
	for _, name := range skip {
		skipped[name] = true
	}
	values := map[string]interface{}{}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if skipped[f.Name] {
			return
		}
		setNested(values, strings.Split(f.Name, "."), flagValue(cmd.Flags(), f))
	})
	data, err := yaml.Marshal(values)
	if err != nil {
		return errs.Wrap(err)
	}
	if err = os.MkdirAll(filepath.Dir(outfile), 0o755); err != nil {
		return errs.Wrap(err)
	}
	return atomicWriteFile(outfile, data, 0o600)
}

func flagValue(flags *pflag.FlagSet, f *pflag.Flag) interface{} {
	s := f.Value.String()
	switch f.Value.Type() {
	case "bool":
		return cast.ToBool(s)
	case "int", "int32", "int64":
		return cast.ToInt64(s)
	case "uint":
		return cast.ToUint64(s)
	case "float64":
		return cast.ToFloat64(s)
	case "stringSlice":
		v, _ := flags.GetStringSlice(f.Name)
		return v
	}
	return s
}

func setNested(m map[string]interface{}, path []string, v interface{}) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	child, ok := m[path[0]].(map[string]interface{})
	if !ok {
		child = map[string]interface{}{}
		m[path[0]] = child
	}
	setNested(child, path[1:], v)
}

// atomicWriteFile is a helper to atomically write the data to the outfile.
func atomicWriteFile(outfile string, data []byte, mode os.FileMode) (err error) {
	fh, err := os.CreateTemp(filepath.Dir(outfile), filepath.Base(outfile))
	if err != nil {
		return errs.Wrap(err)
	}
	needsClose, needsRemove := true, true

	defer func() {
		if needsClose {
			err = errs.Combine(err, errs.Wrap(fh.Close()))
		}
		if needsRemove {
			err = errs.Combine(err, errs.Wrap(os.Remove(fh.Name())))
		}
	}()

	if _, err := fh.Write(data); err != nil {
		return errs.Wrap(err)
	}
	if err := fh.Chmod(mode); err != nil {
		return errs.Wrap(err)
	}

	needsClose = false
	if err := fh.Close(); err != nil {
		return errs.Wrap(err)
	}

	if err := os.Rename(fh.Name(), outfile); err != nil {
		return errs.Wrap(err)
	}
	needsRemove = false

	return nil
}
