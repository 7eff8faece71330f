// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sugawarayuuta/sonnet"
)

// writeJSON writes res as one JSON document followed by a newline.
func writeJSON(w io.Writer, res *Result) error {
	b, err := sonnet.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// writeText writes res as an aligned two-column table.
func writeText(w io.Writer, res *Result) error {
	status := "PASS"
	if !res.OK() {
		status = "FAIL"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", res.RunID)
	fmt.Fprintf(tw, "structure\t%s\n", res.Structure)
	fmt.Fprintf(tw, "workers\t%dP/%dC\n", res.Producers, res.Consumers)
	fmt.Fprintf(tw, "capacity\t%d\n", res.Capacity)
	fmt.Fprintf(tw, "consumed\t%d/%d\n", res.Consumed, res.Expected)
	fmt.Fprintf(tw, "missing\t%d\n", res.Missing)
	fmt.Fprintf(tw, "duplicates\t%d\n", res.Duplicates)
	fmt.Fprintf(tw, "out of range\t%d\n", res.OutOfRange)
	fmt.Fprintf(tw, "order violations\t%d\n", res.OrderViolations)
	fmt.Fprintf(tw, "timed out\t%v\n", res.TimedOut)
	fmt.Fprintf(tw, "elapsed\t%.1fms\n", res.ElapsedMS)
	fmt.Fprintf(tw, "throughput\t%.0f ops/s\n", res.OpsPerSec)
	if res.Alloc != nil {
		fmt.Fprintf(tw, "large objects\t%d\n", res.Alloc.LargeObjects)
		for _, c := range res.Alloc.Classes {
			fmt.Fprintf(tw, "class %d (%dB)\t%d blocks, %d cached\n", c.Class, c.BlockSize, c.Blocks, c.Cached)
		}
	}
	fmt.Fprintf(tw, "result\t%s\n", status)
	return tw.Flush()
}
