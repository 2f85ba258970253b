// Package fsx 固化数据集落盘的写入纪律：临时文件 + 原子 rename。
// 读者（包括被中断后重跑的自己）永远看不到写了一半的文件。
package fsx

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// WriteFileAtomic 在 dir 下原子写入 name（临时文件 + rename，覆盖已存在的同名文件）。
//
// 约束：
//   - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
//   - 临时文件做 Sync；目录 Sync 为 best-effort（平台语义差异大，失败不升级为错误）
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 同目录临时文件（前缀带 '.'，避免污染数据目录视图）。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

// WriteFileIfChanged 与 WriteFileAtomic 相同，但目标文件已存在且内容一致时直接跳过，
// 避免重复 run 造成无意义的时间戳抖动。返回值表示是否真的写入了。
func WriteFileIfChanged(dir, name string, data []byte) (bool, error) {
	dst := filepath.Join(dir, name)
	if old, err := os.ReadFile(dst); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	// 读失败（不存在/不可读）都走写入路径；写入自身会暴露真正的问题。
	if err := WriteFileAtomic(dir, name, data); err != nil {
		return false, err
	}
	return true, nil
}

// FileHasContent 判断路径是否存在且为非空普通文件（图片幂等跳过的判定）。
func FileHasContent(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
