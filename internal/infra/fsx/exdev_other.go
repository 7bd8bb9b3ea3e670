//go:build !unix

package fsx

// 非 unix 平台上 rename 失败一律按普通错误处理，不走复制回退。
func crossDevice(error) bool { return false }
