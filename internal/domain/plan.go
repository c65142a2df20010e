package domain

// CompileJob 是对单个着色器的最小执行计划。
type CompileJob struct {
	File ShaderFile

	// Overwrite 表示产物已存在（仅用于报告；编译总是覆盖）。
	Overwrite bool
}
