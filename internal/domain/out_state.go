package domain

// OutState 描述输出目录的现状（只做 ReadDir，不读内容）。
type OutState struct {
	OutDir string

	// Exists 为 false 表示输出目录不存在；本工具不会替用户创建它。
	Exists bool

	// ExistingNames 是目录内现有文件名集合，用于 O(1) 判定是否覆盖。
	ExistingNames map[string]struct{}
}
