package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func baseName(p string) string {
	if p == "" {
		return "<unknown>"
	}
	return filepath.Base(p)
}

// formatActive 最多展示 max 个正在编译的文件名，其余折叠为 +N。
func formatActive(names []string, max int) string {
	if len(names) == 0 {
		return "-"
	}
	if max <= 0 || len(names) <= max {
		return strings.Join(names, ",")
	}
	return fmt.Sprintf("%s,+%d", strings.Join(names[:max], ","), len(names)-max)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}
