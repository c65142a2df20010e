package domain

import "strings"

// Stage 是着色器阶段（由扩展名决定，只用于报告展示）。
type Stage string

const (
	StageVertex   Stage = "vertex"
	StageFragment Stage = "fragment"
	StageGeneric  Stage = "generic"
)

// ShaderFile 描述一次扫描得到的着色器源文件（只做 stat，不读内容）。
//
// 不变量：
// - Ext 必须属于 {frag, vert, glsl}（大小写敏感，不含 '.'）
// - SrcAbs/OutAbs 由扫描阶段一次性算好，后续阶段不再拼路径
type ShaderFile struct {
	Name    string // "triangle.vert"
	Base    string // "triangle"
	Ext     string // "vert"
	Stage   Stage
	SrcAbs  string
	OutName string // "triangle_vert.spv"
	OutAbs  string
}

// SplitName 按“最后一个 '.'”切分文件名。没有 '.' 时 ok=false。
func SplitName(name string) (base, ext string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// IsShaderExt 判断 ext 是否为可编译的源文件扩展名。
func IsShaderExt(ext string) bool {
	switch ext {
	case "frag", "vert", "glsl":
		return true
	default:
		return false
	}
}

func StageOf(ext string) Stage {
	switch ext {
	case "vert":
		return StageVertex
	case "frag":
		return StageFragment
	default:
		return StageGeneric
	}
}

// OutputName 返回产物文件名：<base>_<ext>.spv（例如 triangle.vert -> triangle_vert.spv）。
func OutputName(base, ext string) string {
	return base + "_" + ext + ".spv"
}
