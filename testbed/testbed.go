// Package testbed runs redis-server for integration tests and benchmarks.
package testbed

import (
	"os"
	"os/exec"
)

// Binary is a path to redis-server. Tests depending on it are skipped when it is empty.
var Binary = func() string { p, _ := exec.LookPath("redis-server"); return p }()

// Dir is temporary directory where redis will run.
var Dir = ""

// InitDir initiates Dir with temporary directory in base.
func InitDir(base string) {
	if Dir == "" {
		var err error
		Dir, err = os.MkdirTemp(base, "redis_test_")
		if err != nil {
			panic(err)
		}
	}
}

// RmDir removes temporary directory.
func RmDir() {
	if Dir == "" {
		return
	}
	if err := os.RemoveAll(Dir); err != nil {
		panic(err)
	}
	Dir = ""
}
