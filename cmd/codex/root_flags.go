package main

import (
	"errors"
	"strings"
)

type rootArgs struct {
	overrides []string
}

// parseRootArgs 抓取根级 -c key=value 覆盖，其余参数原样透传。遇到
// 第一个非 flag 参数（子命令）就停止扫描，后面的内容全归子命令。
func parseRootArgs(args []string) (rootArgs, []string, error) {
	var root rootArgs
	rest := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, args[i:]...)
			return root, rest, nil
		}
		name := strings.TrimLeft(arg, "-")
		value := ""
		hasValue := false
		if idx := strings.Index(name, "="); idx >= 0 {
			name, value, hasValue = name[:idx], name[idx+1:], true
		}
		if name != "c" {
			rest = append(rest, arg)
			continue
		}
		if hasValue {
			root.overrides = append(root.overrides, value)
			continue
		}
		if i+1 >= len(args) {
			return rootArgs{}, nil, errors.New("flag -c needs a key=value argument")
		}
		i++
		root.overrides = append(root.overrides, args[i])
	}
	return root, rest, nil
}

func prependOverrides(root []string, overrides []string) []string {
	merged := append([]string{}, root...)
	return append(merged, overrides...)
}
