package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是默认配置文件名（位于 cwd，可选）。
	FileName = "shaderbuild.json"

	DefaultGLSLDir   = "assets/shaders/glsl"
	DefaultOutputDir = "assets/shaders/spir-v"
	// DefaultCompiler 在未配置且没有 VULKAN_SDK 时使用，交给 PATH 查找。
	DefaultCompiler = "glslc"

	// DefaultConcurrency 为 1：逐个编译，与单线程行为一致。
	DefaultConcurrency = 1
	MaxConcurrency     = 32
)

const (
	EnvGLSLDir   = "SHADERBUILD_GLSL_DIR"
	EnvOutputDir = "SHADERBUILD_OUTPUT_DIR"
	EnvCompiler  = "SHADERBUILD_COMPILER"
	EnvVulkanSDK = "VULKAN_SDK"
)

// LookupEnv 与 os.LookupEnv 同签名，测试可注入。
type LookupEnv func(key string) (string, bool)

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --verify=false 必须能覆盖 verify_output=true。
type CLIArgs struct {
	ConfigPath string

	GLSLDir   string
	OutputDir string
	Compiler  string

	Concurrency    int
	ConcurrencySet bool

	Verify    bool
	VerifySet bool

	Report string
}

// FileConfig 对应 shaderbuild.json 的解析结构。
type FileConfig struct {
	GLSLDir      string `json:"glsl_dir"`
	OutputDir    string `json:"output_dir"`
	Compiler     string `json:"compiler"`
	Concurrency  int    `json:"concurrency"`
	VerifyOutput *bool  `json:"verify_output"`
	Report       string `json:"report"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
//
// 注意：目录与编译器是否存在都不在这里校验，交给扫描/启动阶段自然失败。
type EffectiveConfig struct {
	GLSLDir   string
	OutputDir string
	// Compiler 要么是绝对路径，要么是交给 PATH 查找的裸命令名。
	Compiler string

	Concurrency  int
	VerifyOutput bool

	// ReportPath 为空表示不写报告文件。
	ReportPath string

	// ConfigFile 是实际读取的配置文件（没有则为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 给了 --config：必须存在
// 2) 否则尝试 <cwd>/shaderbuild.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值。
// 相对路径：配置文件中的相对配置文件所在目录；CLI/环境变量中的相对 cwd。
func LoadEffective(cwd string, cli CLIArgs, env LookupEnv) (EffectiveConfig, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	return merge(cwdAbs, cli, env, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, env LookupEnv, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	fileBase := cwdAbs
	if cfgPath != "" {
		fileBase = filepath.Dir(cfgPath)
	}

	glslDir := pickPath(cli.GLSLDir, envValue(env, EnvGLSLDir), fc.GLSLDir, DefaultGLSLDir, cwdAbs, fileBase)
	outputDir := pickPath(cli.OutputDir, envValue(env, EnvOutputDir), fc.OutputDir, DefaultOutputDir, cwdAbs, fileBase)

	var compiler string
	switch {
	case strings.TrimSpace(cli.Compiler) != "":
		compiler = resolveCompiler(cwdAbs, cli.Compiler)
	case envValue(env, EnvCompiler) != "":
		compiler = resolveCompiler(cwdAbs, envValue(env, EnvCompiler))
	case strings.TrimSpace(fc.Compiler) != "":
		compiler = resolveCompiler(fileBase, fc.Compiler)
	case envValue(env, EnvVulkanSDK) != "":
		compiler = filepath.Join(absCleanFrom(cwdAbs, envValue(env, EnvVulkanSDK)), "bin", glslcName())
	default:
		compiler = DefaultCompiler
	}

	// concurrency：CLI > config > 默认；超出范围截断。
	concurrency := DefaultConcurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	} else if fc.Concurrency != 0 {
		concurrency = fc.Concurrency
	}
	if concurrency < 1 {
		if cfgPath != "" && !cli.ConcurrencySet {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("concurrency 必须 >= 1，实际是 %d", concurrency)}
		}
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	verify := false
	if cli.VerifySet {
		verify = cli.Verify
	} else if fc.VerifyOutput != nil {
		verify = *fc.VerifyOutput
	}

	report := ""
	if strings.TrimSpace(cli.Report) != "" {
		report = absCleanFrom(cwdAbs, cli.Report)
	} else if strings.TrimSpace(fc.Report) != "" {
		report = absCleanFrom(fileBase, fc.Report)
	}

	return EffectiveConfig{
		GLSLDir:      glslDir,
		OutputDir:    outputDir,
		Compiler:     compiler,
		Concurrency:  concurrency,
		VerifyOutput: verify,
		ReportPath:   report,
		ConfigFile:   cfgPath,
	}, nil
}

// pickPath 按 CLI > env > file > default 选择目录，并规范化为绝对路径。
func pickPath(cliV, envV, fileV, def, cwdAbs, fileBase string) string {
	switch {
	case strings.TrimSpace(cliV) != "":
		return absCleanFrom(cwdAbs, cliV)
	case envV != "":
		return absCleanFrom(cwdAbs, envV)
	case strings.TrimSpace(fileV) != "":
		return absCleanFrom(fileBase, fileV)
	default:
		return absCleanFrom(fileBase, def)
	}
}

// resolveCompiler：带目录分隔符的视为路径（相对 base 转绝对），裸命令名保持原样交给 PATH。
func resolveCompiler(base, p string) string {
	p = strings.TrimSpace(p)
	if !strings.ContainsAny(p, `/\`) {
		return p
	}
	return absCleanFrom(base, p)
}

func glslcName() string {
	if runtime.GOOS == "windows" {
		return "glslc.exe"
	}
	return "glslc"
}

func envValue(env LookupEnv, key string) string {
	v, ok := env(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
