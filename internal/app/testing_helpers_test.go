package app

import (
	"io"

	logx "barstatus/pkg/logx"
)

func newTestLogger() logx.Logger { return logx.NewWriter(io.Discard, "debug") }
