//go:build !v8

package bridge

import (
	"github.com/nativebridge/ipc/internal/core"
	"github.com/nativebridge/ipc/internal/quickjs"
)

func newJSRuntime(cfg core.EngineConfig) (core.JSRuntime, error) {
	return quickjs.New(cfg)
}
