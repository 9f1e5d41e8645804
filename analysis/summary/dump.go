// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package summary

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/awslabs/sparseflow/analysis/ir"
	"github.com/klauspost/compress/zstd"
)

// Dump writes a zstd-compressed text listing of the table, one entry per paragraph
func (t *Table) Dump(w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	for _, e := range t.sortedEntries() {
		fmt.Fprintf(bw, "%s after %s\n", e.base.Name, ir.StmtString(e.stmt))
		for _, p := range t.graphs[e].Paths() {
			fmt.Fprintf(bw, "  %s\n", p)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Report dumps the table to a new file in dir and returns the file name
func (t *Table) Report(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "summaries-*.txt.zst")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := t.Dump(f); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// ReadDump decompresses a dump written by Dump
func ReadDump(r io.Reader) (string, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return "", err
	}
	defer dec.Close()
	b, err := io.ReadAll(dec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
