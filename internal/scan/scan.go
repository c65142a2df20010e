package scan

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/John-Robertt/shaderbuild/internal/domain"
)

// ScanShaders 列出 glslDir 下可编译的着色器源文件，并为每个文件算好产物路径。
//
// 规则（硬约束）：
// - 只做一次目录列举，不递归子目录
// - 仅保留普通文件（符号链接按目标判定），扩展名必须属于 {frag, vert, glsl}（大小写敏感）
// - glslDir 不存在/不可读：直接返回错误（调用方在任何编译开始前中止）
//
// 注意：扫描阶段只做 stat，不读文件内容；outputDir 是否存在不在这里校验。
func ScanShaders(glslDir, outputDir string) ([]domain.ShaderFile, error) {
	glslDir = filepath.Clean(glslDir)
	outputDir = filepath.Clean(outputDir)

	entries, err := os.ReadDir(glslDir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.ShaderFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		base, ext, ok := domain.SplitName(name)
		if !ok || !domain.IsShaderExt(ext) {
			continue
		}

		src := filepath.Join(glslDir, name)
		if !isRegular(e, src) {
			continue
		}

		outName := domain.OutputName(base, ext)
		files = append(files, domain.ShaderFile{
			Name:    name,
			Base:    base,
			Ext:     ext,
			Stage:   domain.StageOf(ext),
			SrcAbs:  src,
			OutName: outName,
			OutAbs:  filepath.Join(outputDir, outName),
		})
	}

	// ReadDir 已按文件名排序；这里再显式排一次，不依赖实现细节。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func isRegular(e os.DirEntry, path string) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	// 符号链接：跟随到目标（悬空链接直接忽略）。
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}
