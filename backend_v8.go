//go:build v8

package bridge

import (
	"github.com/nativebridge/ipc/internal/core"
	"github.com/nativebridge/ipc/internal/v8engine"
)

func newJSRuntime(cfg core.EngineConfig) (core.JSRuntime, error) {
	return v8engine.New(cfg)
}
