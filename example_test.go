package kfs_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knightos/genkfs"
)

func ExampleBuild() {
	model := mustTempDir()
	defer os.RemoveAll(model)
	if err := os.WriteFile(filepath.Join(model, "hello.txt"), []byte("Hello, World!"), 0o644); err != nil {
		panic(err)
	}

	rom := mustTempROM(13 * 0x4000)
	defer os.Remove(rom)

	summary, err := kfs.Build(rom, model, kfs.Options{})
	if err != nil {
		panic(err)
	}
	fmt.Println(summary.DATPages, summary.FATPages)
	// Output:
	// 1 1
}

func mustTempDir() string {
	dir, err := os.MkdirTemp("", "genkfs-example")
	if err != nil {
		panic(err)
	}
	return dir
}

func mustTempROM(size int64) string {
	f, err := os.CreateTemp("", "genkfs-example-rom")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		panic(err)
	}
	return f.Name()
}
