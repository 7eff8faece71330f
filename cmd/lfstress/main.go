// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfstress drives one lfds container with concurrent producers and
// consumers and checks that every item arrives exactly once.
//
// Usage:
//
//	lfstress -structure queue -producers 4 -consumers 4 -items 100000
//	lfstress -structure ring -producers 1 -consumers 1 -capacity 4096 -json
//	LFSTRESS_STRUCTURE=stack LFSTRESS_CAPACITY=0 lfstress
//
// Every flag has an LFSTRESS_* environment counterpart; flags win. The
// exit status is 0 when the run passes, 1 when the check fails or the run
// times out, and 2 on a usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "lfstress: %v\n", err)
		return 2
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res := run(ctx, cfg, logger)

	write := writeText
	if cfg.JSON {
		write = writeJSON
	}
	if err := write(stdout, res); err != nil {
		logger.Error("write report", slog.Any("error", err))
		return 1
	}
	if !res.OK() {
		return 1
	}
	return 0
}
