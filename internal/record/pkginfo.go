package record

import (
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

// PackageInfo names the program that produced a record.
type PackageInfo struct {
	Name    string
	Version string
}

var (
	pkgOnce sync.Once
	pkgInfo PackageInfo
)

// Package returns the main module's name and version from the binary's build
// info. It is resolved once per process. Binaries built without module
// support (and test binaries) fall back to the executable's base name.
func Package() PackageInfo {
	pkgOnce.Do(func() {
		pkgInfo = readPackageInfo(debug.ReadBuildInfo)
	})
	return pkgInfo
}

func readPackageInfo(read func() (*debug.BuildInfo, bool)) PackageInfo {
	bi, ok := read()
	if !ok || bi == nil {
		return PackageInfo{Name: program()}
	}

	info := PackageInfo{
		Name:    path.Base(bi.Main.Path),
		Version: bi.Main.Version,
	}
	if bi.Main.Path == "" {
		info.Name = path.Base(bi.Path)
	}
	if info.Name == "" || info.Name == "." || info.Name == "/" {
		info.Name = program()
	}
	if info.Version == "(devel)" {
		info.Version = ""
	}
	return info
}

func program() string {
	if len(os.Args) == 0 {
		return "pkglog"
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
}
