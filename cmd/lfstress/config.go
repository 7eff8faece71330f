// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// Structures lists the containers lfstress can exercise.
var Structures = []string{"queue", "blocking", "stack", "ring", "alloc"}

// maxItems bounds producers*items so every value fits the seen table.
const maxItems = 1 << 28

// Config is one stress run.
type Config struct {
	Structure string
	Producers int
	Consumers int
	Items     int // per producer
	Capacity  int // 0 = unbounded where supported
	Timeout   time.Duration
	JSON      bool
	Futex     bool
	Verbose   bool
}

// loadConfig reads LFSTRESS_* environment variables as defaults and lets
// command-line flags override them.
func loadConfig(args []string, stderr io.Writer) (Config, error) {
	var c Config
	fs := flag.NewFlagSet("lfstress", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.Structure, "structure", getEnv("LFSTRESS_STRUCTURE", "queue"),
		"container to stress: queue, blocking, stack, ring, alloc")
	fs.IntVar(&c.Producers, "producers", getEnvAsInt("LFSTRESS_PRODUCERS", 4), "producer goroutines")
	fs.IntVar(&c.Consumers, "consumers", getEnvAsInt("LFSTRESS_CONSUMERS", 4), "consumer goroutines")
	fs.IntVar(&c.Items, "items", getEnvAsInt("LFSTRESS_ITEMS", 100000), "items per producer")
	fs.IntVar(&c.Capacity, "capacity", getEnvAsInt("LFSTRESS_CAPACITY", 1024), "container capacity (0 = unbounded)")
	fs.DurationVar(&c.Timeout, "timeout", getEnvAsDuration("LFSTRESS_TIMEOUT", time.Minute), "abort the run after this long")
	fs.BoolVar(&c.JSON, "json", getEnvAsBool("LFSTRESS_JSON", false), "write the report as JSON")
	fs.BoolVar(&c.Futex, "futex", getEnvAsBool("LFSTRESS_FUTEX", false), "park blocking containers on futex(2)")
	fs.BoolVar(&c.Verbose, "v", getEnvAsBool("LFSTRESS_VERBOSE", false), "debug logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return c, c.validate()
}

var errConfig = errors.New("invalid configuration")

func (c Config) validate() error {
	switch {
	case !slices.Contains(Structures, c.Structure):
		return fmt.Errorf("%w: unknown structure %q", errConfig, c.Structure)
	case c.Producers < 1 || c.Consumers < 1:
		return fmt.Errorf("%w: producers and consumers must be >= 1", errConfig)
	case c.Items < 1:
		return fmt.Errorf("%w: items must be >= 1", errConfig)
	case c.Producers*c.Items > maxItems:
		return fmt.Errorf("%w: producers*items exceeds %d", errConfig, maxItems)
	case c.Capacity < 0:
		return fmt.Errorf("%w: capacity must be >= 0", errConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be > 0", errConfig)
	}
	if c.Structure == "ring" {
		if c.Producers != 1 || c.Consumers != 1 {
			return fmt.Errorf("%w: ring requires exactly one producer and one consumer", errConfig)
		}
		if c.Capacity < 2 {
			return fmt.Errorf("%w: ring capacity must be >= 2", errConfig)
		}
	}
	return nil
}

// Total returns the number of items the run moves.
func (c Config) Total() int {
	return c.Producers * c.Items
}

// --- Helpers ---

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
