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

// Package formatutil colors the output of the command line tools.
package formatutil

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Style formats its arguments the way fmt.Sprint does, wrapped in an escape sequence when colors are enabled
type Style func(args ...any) string

// Palette holds the styles used to print to one writer
type Palette struct {
	Bold   Style
	Faint  Style
	Red    Style
	Green  Style
	Yellow Style
	Cyan   Style
}

// NewPalette returns the palette for w. Colors are enabled only when w is a terminal.
func NewPalette(w io.Writer) *Palette {
	on := false
	if f, ok := w.(*os.File); ok {
		on = term.IsTerminal(int(f.Fd()))
	}
	return NewPaletteWithColors(on)
}

// NewPaletteWithColors returns a palette whose styles color their output when on is true
func NewPaletteWithColors(on bool) *Palette {
	return &Palette{
		Bold:   style("\033[1m%s\033[0m", on),
		Faint:  style("\033[2m%s\033[0m", on),
		Red:    style("\033[1;31m%s\033[0m", on),
		Green:  style("\033[1;32m%s\033[0m", on),
		Yellow: style("\033[1;33m%s\033[0m", on),
		Cyan:   style("\033[1;36m%s\033[0m", on),
	}
}

func style(format string, on bool) Style {
	return func(args ...any) string {
		if on {
			return fmt.Sprintf(format, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}

// Sanitize removes the escape sequences of s
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}
