package instructions

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// GlobalFilename 是用户级指令文件，固定放在 ~/.codex 下。
	GlobalFilename = "instructions.md"
	// ProjectDocFilename 是仓库级说明文件，沿工作目录向上逐层查找。
	ProjectDocFilename = "codex.md"
)

// Discover assembles the instructions text that rides along with every
// execution request: the global ~/.codex/instructions.md first, then every
// codex.md between the filesystem root and the workdir, outermost first so
// the doc closest to the work lands last. Missing files contribute nothing;
// an empty result means no instructions anywhere.
func Discover(workdir string) string {
	var parts []string

	home, _ := os.UserHomeDir()
	if home != "" {
		if data, err := os.ReadFile(filepath.Join(home, ".codex", GlobalFilename)); err == nil {
			parts = append(parts, string(data))
		}
	}

	dir := workdir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	dir = filepath.Clean(dir)

	var chain []string
	prev := ""
	for dir != prev && dir != string(filepath.Separator) {
		chain = append(chain, dir)
		prev = dir
		dir = filepath.Dir(dir)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if data, err := os.ReadFile(filepath.Join(chain[i], ProjectDocFilename)); err == nil {
			parts = append(parts, string(data))
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
