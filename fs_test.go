package kfs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knightos/genkfs"
)

const pageSize = 0x4000

func newROM(t *testing.T, pages int) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "rom")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(pages)*pageSize))
	return f.Name()
}

func readROM(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestBuildEmptyModel(t *testing.T) {
	model := t.TempDir()
	rom := newROM(t, 13)

	summary, err := kfs.Build(rom, model, kfs.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.DATPages)
	require.Equal(t, 0, summary.FATPages)

	data := readROM(t, rom)
	require.Equal(t, []byte("KFS"), data[4*pageSize:4*pageSize+3])
	for p := 4; p <= 4; p++ {
		require.Equal(t, byte('K'), data[p*pageSize])
	}
}

func TestBuildSingleFile(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(model, "a.txt"), bytes.Repeat([]byte{0x42}, 100), 0o644))
	rom := newROM(t, 13)

	summary, err := kfs.Build(rom, model, kfs.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.DATPages)
	require.Equal(t, 1, summary.FATPages)

	data := readROM(t, rom)
	blockAddr := 4*pageSize + 1*0x100
	require.Equal(t, bytes.Repeat([]byte{0x42}, 100), data[blockAddr:blockAddr+100])
}

func TestBuildNestedDirectories(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(model, "d", "e"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(model, "d", "e", "f.bin"), []byte{1, 2, 3}, 0o644))
	rom := newROM(t, 13)

	_, err := kfs.Build(rom, model, kfs.Options{})
	require.NoError(t, err)
}

func TestBuildSymlink(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.Symlink("../target", filepath.Join(model, "link")))
	rom := newROM(t, 13)

	_, err := kfs.Build(rom, model, kfs.Options{})
	require.NoError(t, err)
}

func TestBuildFileExactlyOneBlock(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(model, "full.bin"), bytes.Repeat([]byte{0x7}, 0x100), 0o644))
	rom := newROM(t, 13)

	summary, err := kfs.Build(rom, model, kfs.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.DATPages)

	data := readROM(t, rom)
	headerAddr := 4*pageSize + 1*4
	require.Equal(t, []byte{0xFF, 0xFF}, data[headerAddr+2:headerAddr+4]) // nextSID == nullSID
}

func TestBuildDeterministic(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(model, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(model, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(model, "sub", "b.txt"), []byte("world"), 0o644))

	rom1 := newROM(t, 13)
	_, err := kfs.Build(rom1, model, kfs.Options{})
	require.NoError(t, err)

	rom2 := newROM(t, 13)
	_, err = kfs.Build(rom2, model, kfs.Options{})
	require.NoError(t, err)

	require.Equal(t, readROM(t, rom1), readROM(t, rom2))
}

func TestBuildRejectsUndersizedROM(t *testing.T) {
	model := t.TempDir()
	rom := newROM(t, 12)

	_, err := kfs.Build(rom, model, kfs.Options{})
	require.Error(t, err)
	var kerr *kfs.Error
	require.ErrorAs(t, err, &kerr)
	require.Equal(t, kfs.KindInvalidLayout, kerr.Kind)
}

type recordingProgress struct {
	adding     []string
	links      []string
	datPages   int
	fatPages   int
	doneCalled bool
}

func (p *recordingProgress) Adding(path string)           { p.adding = append(p.adding, path) }
func (p *recordingProgress) AddingLink(name, target string) {
	p.links = append(p.links, name+"->"+target)
}
func (p *recordingProgress) Done(datPages, fatPages int) {
	p.doneCalled = true
	p.datPages = datPages
	p.fatPages = fatPages
}

func TestBuildReportsProgress(t *testing.T) {
	model := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(model, "a.txt"), []byte("hello"), 0o644))
	rom := newROM(t, 13)

	progress := &recordingProgress{}
	summary, err := kfs.Build(rom, model, kfs.Options{Progress: progress})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(model, "a.txt")}, progress.adding)
	require.True(t, progress.doneCalled)
	require.Equal(t, summary.DATPages, progress.datPages)
	require.Equal(t, summary.FATPages, progress.fatPages)
}

func TestBuildRejectsOversizedFile(t *testing.T) {
	model := t.TempDir()
	rom := newROM(t, 13)
	f, err := os.Create(filepath.Join(model, "huge.bin"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate(0xFFFFFF+1))
	require.NoError(t, f.Close())

	_, err = kfs.Build(rom, model, kfs.Options{})
	require.Error(t, err)
	var kerr *kfs.Error
	require.ErrorAs(t, err, &kerr)
	require.Equal(t, kfs.KindFileTooLarge, kerr.Kind)
}
