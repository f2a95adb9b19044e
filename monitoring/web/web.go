// Package web holds the monitor page served by the monitoring package.
package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

//go:embed dist/*
var dist embed.FS

// DevModeEnv names the environment variable that makes the monitor serve
// the page from the source tree, so edits show up without a rebuild.
const DevModeEnv = "PKTMUX_MONITOR_DEV"

// DevMode reports whether DevModeEnv holds a true value.
func DevMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	return err == nil && on
}

// Assets returns the monitor page files, rooted at the dist directory.
func Assets() http.FileSystem {
	if DevMode() {
		return http.Dir(sourceDir())
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		log.Panicf("monitor page not embedded: %v", err)
	}

	return http.FS(sub)
}

func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		log.Panic("cannot locate the monitor page sources")
	}

	dir := filepath.Join(filepath.Dir(file), "dist")
	log.Printf("monitor: serving the page from %s", dir)

	return dir
}
